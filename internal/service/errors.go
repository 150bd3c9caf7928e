package service

import "errors"

// 业务错误，handler 层据此区分 400 与 500
var (
	ErrEmptyMessage     = errors.New("消息内容不能为空")
	ErrUnsupportedFile  = errors.New("不支持的文件类型，目前仅支持 PDF")
	ErrDocumentNotFound = errors.New("文档不存在")
	ErrPromptNotFound   = errors.New("提示词模板不存在")
)
