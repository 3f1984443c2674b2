package entity

// BoundingBox は検出物の矩形です。
// 座標系は0〜1000の正規化座標か、元画像のピクセル座標のどちらかで、値だけでは確定しません。
type BoundingBox struct {
	YMin float64
	XMin float64
	YMax float64
	XMax float64
}

// Detection は分類モデルが返した1件の検出結果です。
type Detection struct {
	Label      string      // 物品名
	Category   Category    // ゴミ分類
	Confidence float64     // 信頼度（モデルが返さない場合は0）
	Box        BoundingBox // 検出位置
}

// ImageDimensions は静止画のピクセルサイズです。
type ImageDimensions struct {
	Width  int
	Height int
}

// Known は幅と高さが両方とも確定しているかを返します。
func (d ImageDimensions) Known() bool {
	return d.Width > 0 && d.Height > 0
}

// OverlayRect は表示画像に対するパーセント表記の矩形です。
type OverlayRect struct {
	Top      float64
	Left     float64
	Width    float64
	Height   float64
	Category Category
	Label    string
}
