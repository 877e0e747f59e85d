package clover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/asrith4444/clover-poller/internal/model"
	"github.com/asrith4444/clover-poller/pkg/errorutil"
)

// Client Clover 订单接口客户端
type Client struct {
	baseURL    string
	merchantID string
	token      string
	pageSize   int
	httpClient *http.Client
}

// NewClient 创建 Clover 客户端
// pageSize 为单页上限，FetchPage 的 limit 超过该值时会被收敛
func NewClient(baseURL, merchantID, token string, pageSize int) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		merchantID: merchantID,
		token:      token,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ordersResponse Clover 订单列表响应
type ordersResponse struct {
	Elements []orderElement `json:"elements"`
}

type orderElement struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedTime  int64  `json:"createdTime"`
	ModifiedTime int64  `json:"modifiedTime"`
	LineItems    struct {
		Elements []lineItemElement `json:"elements"`
	} `json:"lineItems"`
}

type lineItemElement struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FetchPage 拉取一页订单（expand=lineItems）
// createdAfter（epoch 毫秒）> 0 时作为查询提示下发；上游不保证生效，
// 调用方仍需按创建时间窗口自行过滤。
// 返回值 hasMore 表示本页满页（可能还有下一页）。
func (c *Client) FetchPage(ctx context.Context, offset, limit int, createdAfter int64) ([]model.RemoteOrder, bool, error) {
	if limit <= 0 || limit > c.pageSize {
		limit = c.pageSize
	}

	params := url.Values{}
	params.Set("expand", "lineItems")
	params.Set("orderBy", "createdTime DESC")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	if createdAfter > 0 {
		params.Set("filter", fmt.Sprintf("createdTime>%d", createdAfter))
	}

	endpoint := fmt.Sprintf("%s/v3/merchants/%s/orders?%s", c.baseURL, c.merchantID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, errorutil.NonRetriableWithDetails("build clover request failed", err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, errorutil.RetriableWithDetails("clover request failed", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("clover fetch orders failed: status=%d", resp.StatusCode)
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, false, errorutil.Retriable(msg)
		}
		return nil, false, errorutil.NonRetriable(msg)
	}

	var body ordersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, errorutil.RetriableWithDetails("decode clover response failed", err.Error())
	}

	orders := make([]model.RemoteOrder, 0, len(body.Elements))
	for _, el := range body.Elements {
		order := model.RemoteOrder{
			ID:           el.ID,
			Title:        el.Title,
			CreatedTime:  el.CreatedTime,
			ModifiedTime: el.ModifiedTime,
		}
		for _, li := range el.LineItems.Elements {
			order.Items = append(order.Items, model.RemoteItem{
				ID:   li.ID,
				Name: li.Name,
			})
		}
		orders = append(orders, order)
	}

	hasMore := len(body.Elements) == limit

	return orders, hasMore, nil
}
