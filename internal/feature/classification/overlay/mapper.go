// Package overlay は検出結果の矩形を表示画像上のパーセント座標に変換します。
package overlay

import (
	"errors"

	"ecosort_backend/internal/feature/classification/domain/entity"
)

// NormalizedScale は正規化座標の最大値です。
const NormalizedScale = 1000.0

// ErrDimensionsUnknown はピクセル座標の変換に必要な画像サイズが未確定であることを示します。
var ErrDimensionsUnknown = errors.New("image dimensions are not known yet")

// IsNormalized は矩形を0〜1000の正規化座標として扱うかを判定します。
// 既存クライアントとの互換のため、この条件は変更しないこと。
func IsNormalized(box entity.BoundingBox) bool {
	return box.YMax <= NormalizedScale && box.XMax <= NormalizedScale && box.YMin >= 0
}

// Map は1件の検出結果をオーバーレイ矩形に変換します。
// ymin > ymax のような不正な矩形でもエラーにせず、負の幅・高さをそのまま返します。
func Map(d entity.Detection, dims entity.ImageDimensions) (entity.OverlayRect, error) {
	box := d.Box
	scaleX, scaleY := NormalizedScale, NormalizedScale
	if !IsNormalized(box) {
		if !dims.Known() {
			return entity.OverlayRect{}, ErrDimensionsUnknown
		}
		scaleX, scaleY = float64(dims.Width), float64(dims.Height)
	}

	return entity.OverlayRect{
		Top:      box.YMin / scaleY * 100,
		Left:     box.XMin / scaleX * 100,
		Width:    (box.XMax - box.XMin) / scaleX * 100,
		Height:   (box.YMax - box.YMin) / scaleY * 100,
		Category: d.Category,
		Label:    d.Label,
	}, nil
}

// MapAll は検出結果を入力順のままオーバーレイ矩形に変換します。
// 1件でも画像サイズ待ちがあれば、描画を保留するため全体でErrDimensionsUnknownを返します。
func MapAll(ds []entity.Detection, dims entity.ImageDimensions) ([]entity.OverlayRect, error) {
	out := make([]entity.OverlayRect, 0, len(ds))
	for _, d := range ds {
		r, err := Map(d, dims)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
