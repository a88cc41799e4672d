package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pengpeng/config"
)

// Client 外部同步镜像
// 每次meet/friend/message写入成功后，把完整快照PUT到
// <baseUrl>/<collection>/<id>.json，语义与Firebase REST一致
// 镜像是尽力而为的旁路：失败只记日志，不回滚主写入
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient 创建镜像客户端，未启用时返回nil（调用方需容忍nil）
func NewClient(cfg config.MirrorConfig) *Client {
	if !cfg.Enabled || cfg.BaseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Push 上传一条记录的完整快照
func (c *Client) Push(collection, id string, record interface{}) error {
	if c == nil {
		return nil
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化镜像记录失败: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s.json", c.baseURL, collection, id)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("镜像上传失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("镜像上传失败: status=%d", resp.StatusCode)
	}
	return nil
}
