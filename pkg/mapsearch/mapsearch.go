package mapsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pengpeng/config"
)

// Client 地图地点检索
// 两步流程：先把GPS坐标转换为地图坐标系，再按关键词做周边检索
type Client struct {
	host   string
	ak     string
	radius int
	http   *http.Client
}

// NewClient 创建地点检索客户端
func NewClient(cfg config.MapConfig) *Client {
	return &Client{
		host:   cfg.Host,
		ak:     cfg.AK,
		radius: cfg.Radius,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Place 检索结果中的一个地点
type Place struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	UID      string `json:"uid"`
	Location struct {
		Lng float64 `json:"lng"`
		Lat float64 `json:"lat"`
	} `json:"location"`
}

type convResult struct {
	Status int `json:"status"`
	Result []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"result"`
}

type searchResult struct {
	Status  int     `json:"status"`
	Message string  `json:"message"`
	Results []Place `json:"results"`
}

// Search 以用户当前位置为中心按关键词检索地点
func (c *Client) Search(ctx context.Context, keyword string, lng, lat float64) ([]Place, error) {
	// 坐标转换
	convURL := fmt.Sprintf("http://%s/geoconv/v1/?ak=%s&coords=%s",
		c.host, c.ak, url.QueryEscape(fmt.Sprintf("%f,%f", lng, lat)))

	var conv convResult
	if err := c.getJSON(ctx, convURL, &conv); err != nil {
		return nil, fmt.Errorf("坐标转换失败: %w", err)
	}
	if conv.Status != 0 || len(conv.Result) == 0 {
		return nil, fmt.Errorf("坐标转换失败: status=%d", conv.Status)
	}

	// 周边检索，按距离排序
	params := url.Values{}
	params.Set("query", keyword)
	params.Set("ak", c.ak)
	params.Set("output", "json")
	params.Set("radius", strconv.Itoa(c.radius))
	params.Set("scope", "1")
	params.Set("location", fmt.Sprintf("%f,%f", conv.Result[0].Y, conv.Result[0].X))
	params.Set("filter", "sort_name:distance")

	searchURL := fmt.Sprintf("http://%s/place/v2/search?%s", c.host, params.Encode())

	var result searchResult
	if err := c.getJSON(ctx, searchURL, &result); err != nil {
		return nil, fmt.Errorf("地点检索失败: %w", err)
	}
	if result.Status != 0 {
		return nil, fmt.Errorf("地点检索失败: %s", result.Message)
	}
	return result.Results, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}
