package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParsePositiveInt parses a query parameter, falling back to defaultValue when it is empty.
func ParsePositiveInt(paramName, paramValue string, defaultValue int) (int, error) {
	if paramValue == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(paramValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", paramName)
	}

	if intValue <= 0 {
		return 0, fmt.Errorf("invalid %s", paramName)
	}

	return intValue, nil
}

// ParseOptionalDate parses a YYYY-MM-DD value. Empty input yields nil.
func ParseOptionalDate(paramName, paramValue string) (*time.Time, error) {
	paramValue = strings.TrimSpace(paramValue)
	if paramValue == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, paramValue)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: expected YYYY-MM-DD", paramName)
	}
	return &t, nil
}

// ParseOptionalFloat parses a float query parameter. Empty input yields nil.
func ParseOptionalFloat(paramName, paramValue string) (*float64, error) {
	paramValue = strings.TrimSpace(paramValue)
	if paramValue == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(paramValue, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", paramName)
	}
	return &f, nil
}

// SplitCSVParam splits "a,b,,c" into [a b c].
func SplitCSVParam(paramValue string) []string {
	res := []string{}
	for _, part := range strings.Split(paramValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
