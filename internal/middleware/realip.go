package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP はリクエスト元のクライアントIPアドレスを返す。
// X-Forwarded-Forヘッダーがある場合はその先頭（最も上流のクライアント）を、
// ない場合はRemoteAddrのホスト部を返す。
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
