package enums

import "fmt"

// StockType classifies how a part is sourced.
type StockType string

const (
	StockTypeGenuine       StockType = "genuine"
	StockTypeAftermarket   StockType = "aftermarket"
	StockTypeUsed          StockType = "used"
	StockTypeReconditioned StockType = "reconditioned"
	StockTypeExchange      StockType = "exchange"
)

var validStockTypes = []StockType{
	StockTypeGenuine,
	StockTypeAftermarket,
	StockTypeUsed,
	StockTypeReconditioned,
	StockTypeExchange,
}

// String implements fmt.Stringer.
func (s StockType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockType.
func (s StockType) IsValid() bool {
	for _, candidate := range validStockTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockType converts raw input into a StockType.
func ParseStockType(value string) (StockType, error) {
	for _, candidate := range validStockTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock type %q", value)
}

// ProductSort is the ordering applied to product search results.
type ProductSort string

const (
	ProductSortRelevance  ProductSort = "relevance"
	ProductSortPopularity ProductSort = "popularity"
	ProductSortPriceAsc   ProductSort = "price_asc"
	ProductSortPriceDesc  ProductSort = "price_desc"
	ProductSortName       ProductSort = "name"
	ProductSortSKU        ProductSort = "sku"
)

var validProductSorts = []ProductSort{
	ProductSortRelevance,
	ProductSortPopularity,
	ProductSortPriceAsc,
	ProductSortPriceDesc,
	ProductSortName,
	ProductSortSKU,
}

func (s ProductSort) IsValid() bool {
	for _, candidate := range validProductSorts {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductSort accepts an empty value as relevance.
func ParseProductSort(value string) (ProductSort, error) {
	if value == "" {
		return ProductSortRelevance, nil
	}
	for _, candidate := range validProductSorts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort %q", value)
}
