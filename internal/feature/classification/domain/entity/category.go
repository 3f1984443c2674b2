// Package entity はclassificationフィーチャーのドメインモデルを定義します。
package entity

import "strings"

// Category はゴミの分類カテゴリです。値はモデルとの通信で使うラベルそのものです。
type Category string

const (
	CategoryRecyclable Category = "可回收物"
	CategoryKitchen    Category = "厨余垃圾"
	CategoryHazardous  Category = "有害垃圾"
	CategoryOther      Category = "其他垃圾"
)

// Categories はレスポンススキーマのenum順に並べた全カテゴリです。
var Categories = []Category{
	CategoryRecyclable,
	CategoryKitchen,
	CategoryHazardous,
	CategoryOther,
}

var categoryCodes = map[Category]string{
	CategoryRecyclable: "recyclable",
	CategoryKitchen:    "kitchen",
	CategoryHazardous:  "hazardous",
	CategoryOther:      "other",
}

// Code はAPIクライアント向けのASCIIコードを返します。
func (c Category) Code() string {
	if code, ok := categoryCodes[c]; ok {
		return code
	}
	return categoryCodes[CategoryOther]
}

// Valid は4分類のいずれかであるかを返します。
func (c Category) Valid() bool {
	_, ok := categoryCodes[c]
	return ok
}

// ParseCategory はラベルまたはコードからCategoryを返します。
// 未知の値はCategoryOtherとして扱います。
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	if c := Category(s); c.Valid() {
		return c
	}
	for c, code := range categoryCodes {
		if strings.EqualFold(code, s) {
			return c
		}
	}
	return CategoryOther
}
