package upstream

import (
	"context"
	"net/http"
	"strings"
)

// PublishRequest — что отправляем в Instagram-прокси
type PublishRequest struct {
	Caption  string `json:"caption"`
	MediaURL string `json:"media_url"`
	Hashtags string `json:"hashtags"`
}

type PublishResponse struct {
	MediaID   string `json:"media_id"`
	Permalink string `json:"permalink"`
}

// Instagram — клиент сервиса публикации (Graph API живет за ним)
type Instagram struct {
	c *Client
}

func NewInstagram(c *Client) *Instagram {
	return &Instagram{c: c}
}

// Publish отправляет пост; permalink возвращается после успешной публикации
func (ig *Instagram) Publish(ctx context.Context, caption, mediaURL string, hashtags []string) (*PublishResponse, error) {
	req := PublishRequest{
		Caption:  caption,
		MediaURL: mediaURL,
		Hashtags: strings.Join(hashtags, " "),
	}
	var out PublishResponse
	if err := ig.c.call(ctx, "instagram.publish", http.MethodPost, "/v1/media/publish", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
