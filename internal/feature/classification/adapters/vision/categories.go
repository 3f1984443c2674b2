package vision

import (
	"strings"

	"ecosort_backend/internal/feature/classification/domain/entity"
)

// keywordCategories はVision APIの物体名（英語）からゴミ分類への対応表です。
// 上から順に部分一致で判定します。
var keywordCategories = []struct {
	keyword  string
	category entity.Category
}{
	{"battery", entity.CategoryHazardous},
	{"medicine", entity.CategoryHazardous},
	{"pill", entity.CategoryHazardous},
	{"light bulb", entity.CategoryHazardous},
	{"paint", entity.CategoryHazardous},
	{"thermometer", entity.CategoryHazardous},
	{"bottle", entity.CategoryRecyclable},
	{"tin can", entity.CategoryRecyclable},
	{"can", entity.CategoryRecyclable},
	{"glass", entity.CategoryRecyclable},
	{"newspaper", entity.CategoryRecyclable},
	{"book", entity.CategoryRecyclable},
	{"box", entity.CategoryRecyclable},
	{"cardboard", entity.CategoryRecyclable},
	{"clothing", entity.CategoryRecyclable},
	{"shoe", entity.CategoryRecyclable},
	{"fruit", entity.CategoryKitchen},
	{"banana", entity.CategoryKitchen},
	{"apple", entity.CategoryKitchen},
	{"orange", entity.CategoryKitchen},
	{"vegetable", entity.CategoryKitchen},
	{"food", entity.CategoryKitchen},
	{"flower", entity.CategoryKitchen},
	{"bread", entity.CategoryKitchen},
}

// categoryFor は物体名からゴミ分類を推定します。該当しない場合はCategoryOtherです。
func categoryFor(name string) entity.Category {
	n := strings.ToLower(name)
	for _, kc := range keywordCategories {
		if strings.Contains(n, kc.keyword) {
			return kc.category
		}
	}
	return entity.CategoryOther
}
