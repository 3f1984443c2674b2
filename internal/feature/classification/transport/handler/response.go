package handler

import (
	"github.com/samber/lo"

	"ecosort_backend/internal/api"
	"ecosort_backend/internal/feature/classification/domain/entity"
)

// ToDetectionResponses は検出結果をレスポンス型に変換します。nilは空配列になります。
func ToDetectionResponses(ds []entity.Detection) []api.DetectionResponse {
	return lo.Map(ds, func(d entity.Detection, _ int) api.DetectionResponse {
		out := api.DetectionResponse{
			Name:         d.Label,
			Category:     string(d.Category),
			CategoryCode: api.CategoryCode(d.Category.Code()),
			Box: api.BoundingBox{
				Ymin: d.Box.YMin,
				Xmin: d.Box.XMin,
				Ymax: d.Box.YMax,
				Xmax: d.Box.XMax,
			},
		}
		if d.Confidence > 0 {
			out.Confidence = lo.ToPtr(d.Confidence)
		}
		return out
	})
}

// ToOverlayResponses はオーバーレイをレスポンス型に変換します。
// nil（寸法が未確定）はnullのまま返します。
func ToOverlayResponses(rs []entity.OverlayRect) *[]api.OverlayResponse {
	if rs == nil {
		return nil
	}
	out := lo.Map(rs, func(r entity.OverlayRect, _ int) api.OverlayResponse {
		return api.OverlayResponse{
			Top:      r.Top,
			Left:     r.Left,
			Width:    r.Width,
			Height:   r.Height,
			Label:    r.Label,
			Category: string(r.Category),
		}
	})
	return &out
}

// ToClassificationResponse は1回の分類結果をレスポンス型に変換します。
func ToClassificationResponse(o *entity.Outcome) api.ClassificationResponse {
	return api.ClassificationResponse{
		Detections: ToDetectionResponses(o.Detections),
		Overlays:   ToOverlayResponses(o.Overlays),
		Image: api.ImageSize{
			Width:  o.Dimensions.Width,
			Height: o.Dimensions.Height,
		},
		Announcement: api.AnnouncementResponse{
			Text: o.Announcement.Text,
			Lang: o.Announcement.Lang,
		},
	}
}

func toCategoryResponse(c entity.Category) api.CategoryResponse {
	a := entity.AppearanceOf(c)
	return api.CategoryResponse{
		Code:        api.CategoryCode(c.Code()),
		Label:       string(c),
		Color:       a.Color,
		Background:  a.Background,
		Border:      a.Border,
		Description: a.Description,
	}
}

func toHistoryResponse(e entity.HistoryEntry) api.HistoryEntryResponse {
	out := api.HistoryEntryResponse{
		Id:        int64(e.ID),
		ImageHash: e.ImageHash,
		Width:     e.Width,
		Height:    e.Height,
		Category:  string(e.Category),
		Count:     e.Count,
		Backend:   e.Backend,
		CreatedAt: e.CreatedAt,
	}
	if e.Label != "" {
		out.Label = lo.ToPtr(e.Label)
	}
	if e.Confidence > 0 {
		out.Confidence = lo.ToPtr(e.Confidence)
	}
	return out
}
