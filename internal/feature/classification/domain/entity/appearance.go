package entity

// Appearance はカテゴリごとの表示用設定です。
type Appearance struct {
	Color       string // オーバーレイ枠の色（16進）
	Background  string // 結果画面の背景クラス
	Border      string // 枠線クラス
	Description string // 投放建议
}

// Appearances はカテゴリから表示設定への静的テーブルです。
var Appearances = map[Category]Appearance{
	CategoryRecyclable: {
		Color:       "#2563eb",
		Background:  "bg-blue-600",
		Border:      "border-blue-500",
		Description: "报纸、塑料瓶、易拉罐等",
	},
	CategoryKitchen: {
		Color:       "#16a34a",
		Background:  "bg-green-600",
		Border:      "border-green-500",
		Description: "剩菜剩饭、果皮、花卉等",
	},
	CategoryHazardous: {
		Color:       "#dc2626",
		Background:  "bg-red-600",
		Border:      "border-red-500",
		Description: "电池、药品、油漆桶等",
	},
	CategoryOther: {
		Color:       "#4b5563",
		Background:  "bg-gray-600",
		Border:      "border-gray-500",
		Description: "尘土、烟头、陶瓷碎块等",
	},
}

// AppearanceOf はカテゴリの表示設定を返します。未知のカテゴリはOtherの設定になります。
func AppearanceOf(c Category) Appearance {
	if a, ok := Appearances[c]; ok {
		return a
	}
	return Appearances[CategoryOther]
}
