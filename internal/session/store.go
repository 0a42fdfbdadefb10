package session

import (
	"fmt"
	"net/http"
)

// CookieStore はリクエスト単位のCookieの読み書きを抽象化する。
type CookieStore interface {
	// Get は指定名のCookieの値を返す。存在しない場合はfalseを返す。
	Get(name string) (string, bool)
	// Set はCookieを書き込む。
	Set(cookie *http.Cookie) error
	// Delete はCookieを削除する。存在しない場合も成功とする。
	Delete(name string) error
}

// CookieOptions はセッションCookieの属性。
type CookieOptions struct {
	Secure bool
	Domain string
}

// HTTPCookieStore はhttp.ResponseWriterと*http.Requestを使うCookieStore。
// 同じリクエスト内で書き込み・削除した値は以降のGetに反映される。
type HTTPCookieStore struct {
	w       http.ResponseWriter
	r       *http.Request
	opts    CookieOptions
	written map[string]string
	deleted map[string]bool
}

// NewHTTPCookieStore はHTTPCookieStoreを生成する。
func NewHTTPCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *HTTPCookieStore {
	return &HTTPCookieStore{
		w:       w,
		r:       r,
		opts:    opts,
		written: make(map[string]string),
		deleted: make(map[string]bool),
	}
}

// Get は指定名のCookieの値を返す。
func (s *HTTPCookieStore) Get(name string) (string, bool) {
	if s.deleted[name] {
		return "", false
	}
	if v, ok := s.written[name]; ok {
		return v, true
	}
	c, err := s.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Set はSet-Cookieヘッダーを書き込む。
func (s *HTTPCookieStore) Set(cookie *http.Cookie) error {
	if err := cookie.Valid(); err != nil {
		return fmt.Errorf("invalid cookie %q: %w", cookie.Name, err)
	}
	http.SetCookie(s.w, cookie)
	s.written[cookie.Name] = cookie.Value
	delete(s.deleted, cookie.Name)
	return nil
}

// Delete はMaxAge=-1のSet-Cookieヘッダーを書き込んでCookieを削除する。
// Path・Domainは発行時と同じ値にする。
func (s *HTTPCookieStore) Delete(name string) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   s.opts.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	delete(s.written, name)
	s.deleted[name] = true
	return nil
}

// compile-time interface check
var _ CookieStore = (*HTTPCookieStore)(nil)
