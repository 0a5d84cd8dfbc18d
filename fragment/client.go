// Package fragment 局部刷新请求: GET一个路径, 用响应体替换目标区域的内容
package fragment

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/fixkme/grouprefresh/errs"
	"github.com/fixkme/grouprefresh/mlog"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxBytes = 4 << 20
)

// Target 可以被替换内容的区域
type Target interface {
	SetInnerHTML(id, fragment string) error
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	MaxBytes int64
	// HTTPClient 为空时使用带Timeout的默认client
	HTTPClient *http.Client
}

type Client struct {
	base     *url.URL
	http     *http.Client
	maxBytes int64
}

func NewClient(opt *Options) (*Client, error) {
	base, err := url.Parse(opt.BaseURL)
	if err != nil {
		return nil, errs.Request.Printf("base url %q: %v", opt.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errs.Request.Printf("base url %q must be absolute", opt.BaseURL)
	}
	hc := opt.HTTPClient
	if hc == nil {
		timeout := opt.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	maxBytes := opt.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Client{base: base, http: hc, maxBytes: maxBytes}, nil
}

// Fetch GET path, 返回响应体. target为局部刷新的目标区域id
func (c *Client) Fetch(ctx context.Context, target, path string) (string, error) {
	u := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errs.Request.Printf("%v", err)
	}
	reqID := xid.New().String()
	req.Header.Set("X-Request-Id", reqID)
	// target为空是整页加载, 不带htmx的请求头
	if target != "" {
		req.Header.Set("HX-Request", "true")
		req.Header.Set("HX-Target", target)
		req.Header.Set("HX-Current-URL", c.base.String())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errs.Request.Printf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBytes))
		return "", errs.BadStatus.Printf("GET %s: %d", path, resp.StatusCode)
	}
	// 多读一个字节判断是否超限, 超限直接拒绝, 不替换残缺的片段
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", errs.Request.Printf("read %s: %v", path, err)
	}
	if int64(len(body)) > c.maxBytes {
		return "", errs.Request.Printf("GET %s: body exceeds %d bytes", path, c.maxBytes)
	}
	mlog.Debugf("fragment GET %s req:%s status:%d bytes:%d cost:%v", path, reqID, resp.StatusCode, len(body), time.Since(start))
	return string(body), nil
}

// Swap GET path并把响应体写入target区域(innerHTML)
func (c *Client) Swap(ctx context.Context, doc Target, target, path string) error {
	body, err := c.Fetch(ctx, target, path)
	if err != nil {
		return err
	}
	return doc.SetInnerHTML(target, strings.TrimSpace(body))
}
