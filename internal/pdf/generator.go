package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// A4 纸张尺寸（英寸）与页边距。
var (
	a4Width    = 8.27
	a4Height   = 11.69
	pageMargin = 0.4
)

const defaultTimeout = 30 * time.Second

// Generator 使用 go-rod 在无头浏览器中将简历 HTML 渲染为 PDF。
// 每次调用启动独立的浏览器进程。
type Generator struct {
	timeout time.Duration
	bin     string
}

// NewGenerator 返回一个 Generator。bin 为空时自动查找本机 Chromium。
func NewGenerator(bin string, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Generator{timeout: timeout, bin: bin}
}

// RenderPDF 渲染 HTML 并返回 A4 PDF 字节。
func (g *Generator) RenderPDF(ctx context.Context, htmlContent string) ([]byte, error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	if g.bin != "" {
		launch = launch.Bin(g.bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().Context(ctx).ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Timeout(g.timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(g.timeout)
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      &a4Width,
		PaperHeight:     &a4Height,
		MarginTop:       &pageMargin,
		MarginBottom:    &pageMargin,
		MarginLeft:      &pageMargin,
		MarginRight:     &pageMargin,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}
