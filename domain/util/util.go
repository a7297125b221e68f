package util

import (
	"fmt"
	"strings"

	"ethpool/domain"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const etherDecimals = 18

// WeiToEthString renders an amount in ether without losing precision.
func WeiToEthString(wei *uint256.Int) string {
	whole, frac := new(uint256.Int).DivMod(wei, domain.Scale(), new(uint256.Int))
	res := humanize.BigComma(whole.ToBig())
	if !frac.IsZero() {
		digits := frac.Dec()
		digits = strings.Repeat("0", etherDecimals-len(digits)) + digits
		res += "." + strings.TrimRight(digits, "0")
	}
	return res + " ETH"
}

func WeiString(wei *uint256.Int) string {
	return fmt.Sprintf("%v Wei", humanize.BigComma(wei.ToBig()))
}

// ParseEther reads a decimal ether amount such as "0.5" into wei.
func ParseEther(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	whole, frac, found := strings.Cut(value, ".")
	if whole == "" && (!found || frac == "") {
		return nil, domain.ErrorInvalidAmountFormat
	}
	if len(frac) > etherDecimals {
		return nil, domain.ErrorInvalidAmountFormat
	}
	if whole == "" {
		whole = "0"
	}
	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", etherDecimals-len(frac)), "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	return ParseWei(digits)
}

// ParseWei reads a decimal integer amount of wei.
func ParseWei(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	for _, c := range value {
		if c < '0' || c > '9' {
			return nil, domain.ErrorInvalidAmountFormat
		}
	}
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, domain.ErrorInvalidAmountFormat
	}
	return amount, nil
}

func ParseAddress(value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, domain.ErrorInvalidAddress
	}
	return common.HexToAddress(value), nil
}
