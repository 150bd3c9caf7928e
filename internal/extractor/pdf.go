package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	pdfmodel "github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

// PDFExtractor PDF 文本提取器，基于 UniPDF
type PDFExtractor struct {
	logger *zap.Logger
}

// NewPDFExtractor 创建提取器并注册 UniPDF 许可证
// 许可证缺失不阻止启动，解析 PDF 时才会失败
func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	if err := license.SetMeteredKey(os.Getenv("UNIDOC_LICENSE_KEY")); err != nil {
		logger.Warn("UniPDF 许可证注册失败，PDF 解析将不可用", zap.Error(err))
	}
	return &PDFExtractor{logger: logger}
}

// Supports 判断文件类型是否可解析
func (e *PDFExtractor) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pdf"
}

// ExtractText 提取 PDF 全文，按页拼接
func (e *PDFExtractor) ExtractText(path string) (string, error) {
	if !e.Supports(path) {
		return "", fmt.Errorf("不支持的文件类型: %s", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	pdfReader, err := pdfmodel.NewPdfReader(f)
	if err != nil {
		return "", fmt.Errorf("读取 PDF 失败: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("读取页数失败: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("读取第 %d 页失败: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("创建提取器失败: %w", err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("提取第 %d 页文本失败: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	e.logger.Info("PDF 文本提取完成",
		zap.String("file", filepath.Base(path)),
		zap.Int("pages", numPages),
		zap.Int("chars", sb.Len()))

	return sb.String(), nil
}
