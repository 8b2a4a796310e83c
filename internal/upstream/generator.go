package upstream

import (
	"context"
	"net/http"
)

// GenerateRequest — бриф для генератора контента
type GenerateRequest struct {
	ProductSKU string `json:"product_sku"`
	Tone       string `json:"tone"`
	Topics     string `json:"topics"`
	Brief      string `json:"brief"`
}

type GenerateResponse struct {
	Variants []string `json:"variants"`
	Model    string   `json:"model"`
}

// Generator — клиент AI-сервиса генерации текстов.
// Вызывается синхронно из консоли: оператор ждет варианты в диалоге.
type Generator struct {
	c *Client
}

func NewGenerator(c *Client) *Generator {
	return &Generator{c: c}
}

func (g *Generator) Captions(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var out GenerateResponse
	if err := g.c.call(ctx, "generator.captions", http.MethodPost, "/v1/captions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
