package middleware

import "net/http"

// corsAllowedMethods はブラウザから呼び出されるAPIのメソッド。
// 状態変更はすべてPOSTで行う。
const corsAllowedMethods = "GET, POST, OPTIONS"

// NewCORSMiddleware は許可オリジンからのクロスオリジン呼び出しを受け付けるミドルウェアを返す。
// セッションCookieを送るためワイルドカードは使わず、Originが一致した場合だけ許可ヘッダーを付ける。
// OPTIONSはオリジンにかかわらず204で終端する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			if origin := r.Header.Get("Origin"); origin == "" || origin == allowedOrigin {
				h.Set("Access-Control-Allow-Origin", allowedOrigin)
				h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
				h.Set("Access-Control-Allow-Headers", "Content-Type, "+csrfHeaderName)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
