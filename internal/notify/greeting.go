package notify

// Greeting 根据小时返回印尼语问候语（仅用于消息开头，不影响业务正确性）
func Greeting(hour int) string {
	switch {
	case hour >= 4 && hour < 11:
		return "Selamat pagi"
	case hour >= 11 && hour < 15:
		return "Selamat siang"
	case hour >= 15 && hour < 19:
		return "Selamat sore"
	default:
		return "Selamat malam"
	}
}
