package stamp

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/filestore"
)

var (
	// ErrNoSourceFile 公文没有可盖章的源文件
	ErrNoSourceFile = errors.New("letter has no source file")
)

// Coordinator 文档盖章协调器
//
// 决定当前流程步骤需要叠加哪些印记（QR / 批签），
// 并完成源文件读取、盖章调用与结果落盘
type Coordinator struct {
	stamper       Stamper
	files         filestore.Store
	verifyBaseURL string
	log           *zap.Logger
}

// NewCoordinator 创建盖章协调器
func NewCoordinator(stamper Stamper, files filestore.Store, verifyBaseURL string, log *zap.Logger) *Coordinator {
	return &Coordinator{
		stamper:       stamper,
		files:         files,
		verifyBaseURL: strings.TrimRight(verifyBaseURL, "/"),
		log:           log,
	}
}

// ApplyApproval 为一次审批执行盖章，返回新盖章版文件的 URL
//
// QR 印记只在首次审批时叠加（以 FileStamped 为空判定），
// 批签印记每次审批都叠加，位置由调用方解析好传入。
// 本方法只写新文件，不删除旧文件——旧文件在状态变更提交后
// 由调用方通过 CleanupReplaced 尽力清理（先写后删，崩溃只留孤儿文件）
func (c *Coordinator) ApplyApproval(letter *domain.Letter, parafPlacement domain.Placement, signatureImage string) (string, error) {
	source := letter.StampSource()
	if source == "" {
		return "", ErrNoSourceFile
	}

	data, err := c.files.Read(source)
	if err != nil {
		return "", fmt.Errorf("failed to read source document: %w", err)
	}

	var stamps []Stamp
	if letter.FileStamped == "" {
		qr := letter.QRPlacement()
		stamps = append(stamps, Stamp{
			Page:     qr.Page,
			XPercent: qr.XPercent,
			YPercent: qr.YPercent,
			Size:     qr.Size,
			Type:     TypeQR,
			Data:     fmt.Sprintf("%s/%s", c.verifyBaseURL, letter.QRHash),
		})
	}
	stamps = append(stamps, Stamp{
		Page:     parafPlacement.Page,
		XPercent: parafPlacement.XPercent,
		YPercent: parafPlacement.YPercent,
		Size:     parafPlacement.Size,
		Type:     TypeImage,
		Data:     signatureImage,
	})

	stamped, err := c.stamper.StampDocument(data, letter.QRHash, stamps)
	if err != nil {
		return "", fmt.Errorf("failed to stamp document: %w", err)
	}

	filename := fmt.Sprintf("stamped_%d_%s", time.Now().UnixNano(), originalBasename(source))
	url, err := c.files.Save(stamped, "letters", filename)
	if err != nil {
		return "", fmt.Errorf("failed to save stamped document: %w", err)
	}
	return url, nil
}

// CleanupReplaced 尽力删除被替换的旧盖章文件
//
// 草稿文件永不删除；删除失败只记录日志
func (c *Coordinator) CleanupReplaced(oldURL, draftURL string) {
	if oldURL == "" || oldURL == draftURL {
		return
	}
	if err := c.files.Delete(oldURL); err != nil {
		c.log.Warn("failed to delete replaced stamped file",
			zap.String("url", oldURL),
			zap.Error(err),
		)
	}
}

// DiscardStamped 尽力删除一个未被提交引用的盖章文件（提交失败后的回收）。
func (c *Coordinator) DiscardStamped(url string) {
	if url == "" {
		return
	}
	if err := c.files.Delete(url); err != nil {
		c.log.Warn("failed to discard uncommitted stamped file",
			zap.String("url", url),
			zap.Error(err),
		)
	}
}

// originalBasename 从源 URL 提取原始文件名，剥离历史盖章前缀避免叠加
func originalBasename(url string) string {
	base := path.Base(url)
	for strings.HasPrefix(base, "stamped_") {
		parts := strings.SplitN(base, "_", 3)
		if len(parts) != 3 {
			break
		}
		base = parts[2]
	}
	return base
}
