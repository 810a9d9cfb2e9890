// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package lualex

import (
	"errors"
	"strconv"
	"strings"
)

// ParseNumber converts the given string to a 64-bit floating-point number
// according to the lexical rules of Lua.
// Surrounding whitespace is permitted,
// and any error returned will be of type [*strconv.NumError].
func ParseNumber(s string) (float64, error) {
	trimmed := trimSpace(s)
	withoutSign := trimmed
	if len(withoutSign) > 0 && (withoutSign[0] == '+' || withoutSign[0] == '-') {
		withoutSign = withoutSign[1:]
	}
	if strings.EqualFold(withoutSign, "Inf") ||
		strings.EqualFold(withoutSign, "Infinity") ||
		strings.EqualFold(withoutSign, "NaN") ||
		strings.Contains(withoutSign, "_") {
		return 0, &strconv.NumError{
			Func: "ParseNumber",
			Num:  s,
			Err:  strconv.ErrSyntax,
		}
	}
	toParse := trimmed
	if strings.HasPrefix(withoutSign, "0x") || strings.HasPrefix(withoutSign, "0X") {
		if !strings.ContainsAny(withoutSign, "pP") {
			if !strings.Contains(withoutSign, ".") {
				// A hex numeral with neither radix point nor exponent
				// denotes an integer value.
				x, err := strconv.ParseUint(withoutSign[2:], 16, 64)
				if err != nil {
					return 0, &strconv.NumError{Func: "ParseNumber", Num: s, Err: strconv.ErrSyntax}
				}
				if trimmed[0] == '-' {
					return -float64(x), nil
				}
				return float64(x), nil
			}
			// Go hex float literals must have an exponent.
			toParse = trimmed + "p0"
		}
	}
	f, err := strconv.ParseFloat(toParse, 64)
	if errors.Is(err, strconv.ErrRange) {
		err = nil
	} else if err != nil {
		err.(*strconv.NumError).Num = s
	}
	return f, err
}

func trimSpace(s string) string {
	for len(s) > 0 && isSpace(s[0]) {
		s = s[1:]
	}
	for len(s) > 0 && isSpace(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return s
}
