package security

import (
	"bytes"
	"errors"
)

var (
	// ErrNotPDF 文件不是有效的 PDF
	ErrNotPDF = errors.New("file is not a valid pdf")
	// ErrFileTooLarge 文件超出大小限制
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrEmptyFile 文件内容为空
	ErrEmptyFile = errors.New("file is empty")
)

// MaxDocumentSize 公文 PDF 的大小上限（20MB）
const MaxDocumentSize = 20 * 1024 * 1024

var pdfMagic = []byte("%PDF-")

// ValidatePDF 校验上传的公文文件：非空、大小限制、PDF 魔数
func ValidatePDF(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if len(data) > MaxDocumentSize {
		return ErrFileTooLarge
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return ErrNotPDF
	}
	return nil
}
