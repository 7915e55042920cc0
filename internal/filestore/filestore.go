package filestore

import "errors"

var (
	// ErrFileNotFound 文件不存在
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidURL 不是本存储签发的 URL
	ErrInvalidURL = errors.New("invalid file url")
)

// Store 文件存储协作方接口
//
// Save 返回的 URL 是不透明引用，Read/Delete 以该 URL 定位文件。
// Delete 是尽力而为的清理操作，失败由调用方记录日志，不阻断业务
type Store interface {
	Save(data []byte, folder, filename string) (string, error)
	Read(url string) ([]byte, error)
	Delete(url string) error
}
