package gemini

import (
	"google.golang.org/genai"

	"ecosort_backend/internal/feature/classification/domain/entity"
)

// systemInstruction は分類基準と座標系をモデルに指示する固定文です。
const systemInstruction = `
你是一个针对中国垃圾分类标准的专业AI助手。
你的任务是识别图像中的物品，并根据以下标准进行分类：
1. 可回收物：报纸、书刊、纸板箱、塑料瓶、易拉罐、玻璃瓶、旧衣物等。
2. 厨余垃圾：剩菜剩饭、果皮、花卉、菜叶等易腐烂垃圾。
3. 有害垃圾：废电池、废药品、废灯管、油漆桶等。
4. 其他垃圾：烟头、尘土、陶瓷碎块、受污染的纸张、一次性用品等。

请特别注意识别结果必须使用准确的中文名称，并返回物品在图中的坐标 [ymin, xmin, ymax, xmax] (0-1000)。
`

// userPrompt は画像と一緒に送る依頼文です。
const userPrompt = "请识别这张图里的垃圾，按JSON格式返回。返回格式必须符合指定的Schema。只要返回最主要的一个或两个物品。"

func categoryEnum() []string {
	out := make([]string, 0, len(entity.Categories))
	for _, c := range entity.Categories {
		out = append(out, string(c))
	}
	return out
}

// responseSchema はモデルに強制するJSONスキーマです。
func responseSchema() *genai.Schema {
	number := func() *genai.Schema { return &genai.Schema{Type: genai.TypeNumber} }

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"results": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {Type: genai.TypeString, Description: "物品的详细中文名称"},
						"category": {
							Type: genai.TypeString,
							Enum: categoryEnum(),
						},
						"confidence": number(),
						"box": {
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"ymin": number(),
								"xmin": number(),
								"ymax": number(),
								"xmax": number(),
							},
							Required: []string{"ymin", "xmin", "ymax", "xmax"},
						},
					},
					Required: []string{"name", "category", "box"},
				},
			},
		},
		Required: []string{"results"},
	}
}
