package hub_client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"biostats-go/internal/utils"
)

// ErrNotFound 远端不存在该资源
var ErrNotFound = errors.New("远端资源不存在")

// HubClient 数据集仓库客户端
// 仓库布局：{base}/datasets/{dataset}/manifest.yaml 和
// {base}/datasets/{dataset}/{config}/{split}.jsonl
type HubClient struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewHubClient 创建仓库客户端
func NewHubClient(baseURL, token string, timeout time.Duration) *HubClient {
	return &HubClient{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		token:   token,
	}
}

// FetchManifest 下载数据集目录清单（YAML）
func (hc *HubClient) FetchManifest(ctx context.Context, dataset string) ([]byte, error) {
	body, err := hc.get(ctx, "datasets", dataset, "manifest.yaml")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return data, nil
}

// FetchSplit 下载一个划分的全部记录，保持文件中的顺序
func (hc *HubClient) FetchSplit(ctx context.Context, dataset, config, split string) ([]map[string]interface{}, error) {
	body, err := hc.get(ctx, "datasets", dataset, config, split+".jsonl")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	records, err := utils.ReadJSONLines(body)
	if err != nil {
		return nil, fmt.Errorf("解析 %s/%s/%s 失败: %w", dataset, config, split, err)
	}
	return records, nil
}

func (hc *HubClient) get(ctx context.Context, segments ...string) (io.ReadCloser, error) {
	endpoint, err := url.JoinPath(hc.baseURL, segments...)
	if err != nil {
		return nil, fmt.Errorf("构建请求地址失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	if hc.token != "" {
		req.Header.Set("Authorization", "Bearer "+hc.token)
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("仓库返回错误: status=%d, body=%s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}
