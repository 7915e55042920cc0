package notify

import (
	"fmt"
	"time"
)

// 消息正文为面向用户的印尼语文本，格式不被机器解析，可按需调整

// LinkMessageInput 带魔法链接的通知消息输入
type LinkMessageInput struct {
	RecipientName string
	LetterTitle   string
	LetterNumber  string
	DeepLink      string
	OTP           string
	Now           time.Time
}

// ApprovalRequestMessage 审批请求消息（含一次性链接与 OTP）
func ApprovalRequestMessage(in LinkMessageInput) string {
	return fmt.Sprintf(
		"%s Bapak/Ibu %s,\n\n"+
			"Ada surat yang menunggu persetujuan Anda:\n"+
			"Nomor: %s\n"+
			"Perihal: %s\n\n"+
			"Silakan buka tautan berikut untuk menyetujui atau menolak:\n%s\n\n"+
			"Kode OTP: %s\n"+
			"Tautan dan OTP hanya berlaku satu kali. Jangan bagikan kepada siapa pun.",
		Greeting(in.Now.Hour()), in.RecipientName, in.LetterNumber, in.LetterTitle, in.DeepLink, in.OTP,
	)
}

// SignRequestMessage 签署请求消息
func SignRequestMessage(in LinkMessageInput) string {
	return fmt.Sprintf(
		"%s Bapak/Ibu %s,\n\n"+
			"Surat berikut telah disetujui dan menunggu tanda tangan Anda:\n"+
			"Nomor: %s\n"+
			"Perihal: %s\n\n"+
			"Silakan unggah dokumen yang telah ditandatangani melalui tautan berikut:\n%s\n\n"+
			"Kode OTP: %s\n"+
			"Tautan dan OTP hanya berlaku satu kali. Jangan bagikan kepada siapa pun.",
		Greeting(in.Now.Hour()), in.RecipientName, in.LetterNumber, in.LetterTitle, in.DeepLink, in.OTP,
	)
}

// DispositionMessage 批示邀请消息（签署完成后发给 kepsta 角色用户）
func DispositionMessage(in LinkMessageInput) string {
	return fmt.Sprintf(
		"%s Bapak/Ibu %s,\n\n"+
			"Surat berikut telah selesai ditandatangani:\n"+
			"Nomor: %s\n"+
			"Perihal: %s\n\n"+
			"Anda dapat langsung membuat disposisi melalui tautan berikut:\n%s\n\n"+
			"Kode OTP: %s",
		Greeting(in.Now.Hour()), in.RecipientName, in.LetterNumber, in.LetterTitle, in.DeepLink, in.OTP,
	)
}

// SignedMessage 通知创建人签署已完成
func SignedMessage(recipientName, letterNumber, letterTitle string, now time.Time) string {
	return fmt.Sprintf(
		"%s Bapak/Ibu %s,\n\n"+
			"Surat Anda telah selesai ditandatangani:\n"+
			"Nomor: %s\n"+
			"Perihal: %s",
		Greeting(now.Hour()), recipientName, letterNumber, letterTitle,
	)
}

// RejectedMessage 通知创建人公文被驳回
func RejectedMessage(recipientName, letterNumber, letterTitle, reason string, now time.Time) string {
	return fmt.Sprintf(
		"%s Bapak/Ibu %s,\n\n"+
			"Mohon maaf, surat Anda ditolak:\n"+
			"Nomor: %s\n"+
			"Perihal: %s\n"+
			"Alasan: %s",
		Greeting(now.Hour()), recipientName, letterNumber, letterTitle, reason,
	)
}
