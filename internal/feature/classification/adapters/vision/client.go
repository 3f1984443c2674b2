// Package vision はGoogle Cloud Vision APIの物体検出を使ったゴミ分類クライアントを提供します。
package vision

import (
	"context"
	"fmt"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"

	"ecosort_backend/internal/feature/classification/domain/entity"
	"ecosort_backend/internal/feature/classification/overlay"
	"ecosort_backend/internal/feature/classification/usecase"
)

// maxResults はVision APIに要求する最大検出数です。
const maxResults = 10

// annotator はImageAnnotatorClientのうち利用するメソッドだけを切り出したものです。
type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// VisionClassifier はGoogle Cloud Vision APIを使用して物体を検出し、ゴミ分類を付与します。
type VisionClassifier struct {
	client annotator
	closer func() error
}

// VisionClassifierがClassifierを実装していることをコンパイル時に検証します。
var (
	_ usecase.Classifier = (*VisionClassifier)(nil)
	_ annotator          = (*gvision.ImageAnnotatorClient)(nil)
)

// NewVisionClassifier はADCを使用してVisionClassifierの新しいインスタンスを生成します。
func NewVisionClassifier(ctx context.Context) (*VisionClassifier, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionClassifier{client: client, closer: client.Close}, nil
}

// Close はVision APIクライアントを解放します。
func (v *VisionClassifier) Close() error {
	if v.closer == nil {
		return nil
	}
	return v.closer()
}

// Classify は画像バイト列から物体を検出し、0〜1000の正規化座標で返します。
func (v *VisionClassifier) Classify(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: imageData},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: maxResults},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision API request failed: %w", err)
	}

	if len(resp.Responses) == 0 {
		return []entity.Detection{}, nil
	}

	if resp.Responses[0].Error != nil {
		return nil, fmt.Errorf("vision API error: %s", resp.Responses[0].Error.Message)
	}

	objects := resp.Responses[0].LocalizedObjectAnnotations
	detections := make([]entity.Detection, 0, len(objects))
	for _, obj := range objects {
		detections = append(detections, entity.Detection{
			Label:      obj.Name,
			Category:   categoryFor(obj.Name),
			Confidence: float64(obj.Score),
			Box:        boxFromPoly(obj.BoundingPoly),
		})
	}

	return detections, nil
}

// boxFromPoly は正規化頂点（0〜1）を0〜1000の矩形に変換します。
func boxFromPoly(poly *visionpb.BoundingPoly) entity.BoundingBox {
	if poly == nil || len(poly.NormalizedVertices) == 0 {
		return entity.BoundingBox{}
	}
	vs := poly.NormalizedVertices
	minX, minY := float64(vs[0].X), float64(vs[0].Y)
	maxX, maxY := minX, minY
	for _, p := range vs[1:] {
		x, y := float64(p.X), float64(p.Y)
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	return entity.BoundingBox{
		YMin: minY * overlay.NormalizedScale,
		XMin: minX * overlay.NormalizedScale,
		YMax: maxY * overlay.NormalizedScale,
		XMax: maxX * overlay.NormalizedScale,
	}
}
