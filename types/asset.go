// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const maxSymbolPrecision = 18

// Symbol is a token symbol. Its JSON form is the "4,EOS" string.
type Symbol struct {
	Code      string `cbor:"code"`
	Precision uint8  `cbor:"precision"`
}

// ParseSymbol parses the "4,EOS" form
func ParseSymbol(s string) (Symbol, error) {
	precStr, code, ok := strings.Cut(s, ",")
	if !ok {
		return Symbol{}, fmt.Errorf("invalid symbol: %q", s)
	}
	prec, err := strconv.ParseUint(precStr, 10, 8)
	if err != nil || prec > maxSymbolPrecision {
		return Symbol{}, fmt.Errorf("invalid symbol precision: %q", s)
	}
	if err := validateSymbolCode(code); err != nil {
		return Symbol{}, err
	}
	return Symbol{Code: code, Precision: uint8(prec)}, nil
}

func validateSymbolCode(code string) error {
	if code == "" || len(code) > 7 {
		return fmt.Errorf("invalid symbol code: %q", code)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return fmt.Errorf("invalid symbol code: %q", code)
		}
	}
	return nil
}

func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

func (s Symbol) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Symbol) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	tmp, err := ParseSymbol(str)
	if err != nil {
		return err
	}
	*s = tmp
	return nil
}

// Asset is a token quantity. Its JSON form is the "10.0000 EOS" string.
type Asset struct {
	Amount int64  `cbor:"amount"`
	Symbol Symbol `cbor:"symbol"`
}

// ParseAsset parses the "10.0000 EOS" form
func ParseAsset(s string) (Asset, error) {
	amountStr, code, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return Asset{}, fmt.Errorf("invalid asset: %q", s)
	}
	if err := validateSymbolCode(code); err != nil {
		return Asset{}, err
	}
	var precision uint8
	digits := amountStr
	if whole, frac, found := strings.Cut(amountStr, "."); found {
		if len(frac) > maxSymbolPrecision {
			return Asset{}, fmt.Errorf("invalid asset precision: %q", s)
		}
		precision = uint8(len(frac)) //nolint:gosec
		digits = whole + frac
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Asset{}, fmt.Errorf("invalid asset amount: %q", s)
	}
	return Asset{
		Amount: amount,
		Symbol: Symbol{Code: code, Precision: precision},
	}, nil
}

func (a Asset) String() string {
	sign := ""
	amount := a.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	prec := int(a.Symbol.Precision)
	if prec == 0 {
		return sign + digits + " " + a.Symbol.Code
	}
	if len(digits) <= prec {
		digits = strings.Repeat("0", prec-len(digits)+1) + digits
	}
	return sign + digits[:len(digits)-prec] + "." + digits[len(digits)-prec:] + " " + a.Symbol.Code
}

func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	tmp, err := ParseAsset(str)
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}
