package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore 本地磁盘文件存储实现
type LocalStore struct {
	basePath string // 文件存储根目录
	baseURL  string // 签发 URL 的前缀，如 http://localhost:8080/files
}

// NewLocalStore 创建本地文件存储实例
func NewLocalStore(basePath, baseURL string) (*LocalStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStore{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save 保存文件并返回公开 URL。
func (s *LocalStore) Save(data []byte, folder, filename string) (string, error) {
	// 防止路径穿越
	folder = sanitizeComponent(folder)
	filename = sanitizeComponent(filename)

	dir := filepath.Join(s.basePath, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.baseURL, folder, filename), nil
}

// Read 根据 URL 读取文件内容。
func (s *LocalStore) Read(url string) ([]byte, error) {
	path, err := s.resolve(url)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Delete 根据 URL 删除文件（尽力而为）。
func (s *LocalStore) Delete(url string) error {
	path, err := s.resolve(url)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve 将签发的 URL 还原为磁盘路径。
func (s *LocalStore) resolve(url string) (string, error) {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return "", ErrInvalidURL
	}
	rel := strings.TrimPrefix(url, s.baseURL+"/")
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ErrInvalidURL
	}
	// 防止路径穿越
	folder := filepath.Base(parts[0])
	filename := filepath.Base(parts[1])
	if folder == "." || folder == ".." || filename == "." || filename == ".." {
		return "", ErrInvalidURL
	}
	return filepath.Join(s.basePath, folder, filename), nil
}

// sanitizeComponent 将任意输入压成单个安全的路径成分
func sanitizeComponent(name string) string {
	name = filepath.Base(name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "file"
	}
	return name
}

var _ Store = (*LocalStore)(nil)
