package utils

import (
	"strconv"
	"strings"
)

func BuildBooksListCacheKey(limit, offset int, author, query *string, minPrice, maxPrice *int64, inStock bool) string {
	a := ""
	if author != nil {
		a = strings.ToLower(strings.TrimSpace(*author))
	}
	q := ""
	if query != nil {
		q = strings.ToLower(strings.TrimSpace(*query))
	}
	min := ""
	if minPrice != nil {
		min = strconv.FormatInt(*minPrice, 10)
	}
	max := ""
	if maxPrice != nil {
		max = strconv.FormatInt(*maxPrice, 10)
	}

	return "books:list:v1:limit=" + strconv.Itoa(limit) +
		":offset=" + strconv.Itoa(offset) +
		":author=" + a +
		":q=" + q +
		":min=" + min +
		":max=" + max +
		":instock=" + strconv.FormatBool(inStock)
}
