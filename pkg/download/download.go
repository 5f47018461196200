// Package download 负责把文档引用（URL 或本地路径）解析为原始字节。
package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"
	"hackrx-go/pkg/log"
)

// Fetcher 获取文档内容，返回原始字节与用于推断类型的文件名。
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (data []byte, fileName string, err error)
}

var pdfMagic = []byte("%PDF")

// HTTPFetcher 通过 HTTP(S) 下载文档。
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	maxBytes   int64
	requirePDF bool
}

func NewHTTPFetcher(cfg config.DownloadConfig) *HTTPFetcher {
	return &HTTPFetcher{
		client:     &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBytes,
		requirePDF: cfg.RequirePDF,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	target, err := resolveURL(ref)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", model.ErrInvalidDocumentRef, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	log.Infof("[Downloader] 开始下载文档: %s", target.Redacted())
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", model.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: unexpected status %s", model.ErrDownload, resp.Status)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading body: %v", model.ErrDownload, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("%w: document exceeds %d bytes", model.ErrDownload, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: %w", model.ErrDownload, model.ErrEmptyDocument)
	}
	if f.requirePDF && !bytes.HasPrefix(data, pdfMagic) {
		return nil, "", fmt.Errorf("%w: content does not start with %%PDF", model.ErrNotPDF)
	}

	log.Infof("[Downloader] 文档下载成功, 大小: %d 字节", len(data))
	return data, fileNameFor(target, data), nil
}

// resolveURL 校验引用是否为 http(s) 地址，并把 Google Drive 分享链接改写为直接下载地址。
func resolveURL(ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidDocumentRef, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", model.ErrInvalidDocumentRef, ref)
	}
	return rewriteDriveURL(u), nil
}

func rewriteDriveURL(u *url.URL) *url.URL {
	if !strings.Contains(u.Host, "drive.google.com") {
		return u
	}
	if u.Path == "/uc" && u.Query().Get("export") == "download" {
		return u
	}

	var fileID string
	if _, rest, ok := strings.Cut(u.Path, "/file/d/"); ok {
		fileID, _, _ = strings.Cut(rest, "/")
	} else {
		fileID = u.Query().Get("id")
	}
	if fileID == "" {
		return u
	}

	direct := &url.URL{Scheme: "https", Host: "drive.google.com", Path: "/uc"}
	direct.RawQuery = url.Values{"export": {"download"}, "id": {fileID}}.Encode()
	return direct
}

// fileNameFor 取 URL 路径最后一段作为文件名，缺少扩展名但内容是 PDF 时补上 .pdf，方便提取器识别类型。
func fileNameFor(u *url.URL, data []byte) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "document"
	}
	if path.Ext(name) == "" && bytes.HasPrefix(data, pdfMagic) {
		name += ".pdf"
	}
	return name
}

// FileFetcher 从本地文件系统读取文档，仅供命令行工具使用。
type FileFetcher struct {
	maxBytes int64
}

func NewFileFetcher(maxBytes int64) *FileFetcher {
	return &FileFetcher{maxBytes: maxBytes}
}

func (f *FileFetcher) Fetch(_ context.Context, ref string) ([]byte, string, error) {
	info, err := os.Stat(ref)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", model.ErrInvalidDocumentRef, err)
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%w: %s is a directory", model.ErrInvalidDocumentRef, ref)
	}
	if f.maxBytes > 0 && info.Size() > f.maxBytes {
		return nil, "", fmt.Errorf("%w: document exceeds %d bytes", model.ErrDownload, f.maxBytes)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", model.ErrDownload, err)
	}
	return data, filepath.Base(ref), nil
}

// AutoFetcher 根据引用形式在 HTTP 与本地文件之间选择。
type AutoFetcher struct {
	HTTP *HTTPFetcher
	File *FileFetcher
}

func (a *AutoFetcher) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return a.HTTP.Fetch(ctx, ref)
	}
	return a.File.Fetch(ctx, ref)
}
