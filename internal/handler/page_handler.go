package handler

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/interviewprep/internal/middleware"
	"github.com/hitoshi/interviewprep/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// homeInterviewLimit はホーム画面に表示する模擬面接の最大件数。
const homeInterviewLimit = 20

// InterviewLister はユーザーの模擬面接一覧を取得するインターフェース。
type InterviewLister interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]*model.Interview, error)
}

// PageConfig は画面描画の設定。
type PageConfig struct {
	// FirebaseWebAPIKey はブラウザからIdentity Toolkitを呼ぶためのWeb APIキー。
	FirebaseWebAPIKey string
	// IdentityToolkitURL はブラウザが呼び出すIdentity ToolkitのベースURL。
	IdentityToolkitURL string
}

// PageHandler はHTML画面のハンドラー。
type PageHandler struct {
	interviews InterviewLister
	config     PageConfig
	templates  *template.Template
}

type homePage struct {
	User       *model.User
	Interviews []*model.Interview
}

type authPage struct {
	Title      string
	Mode       string
	APIKey     string
	ToolkitURL string
}

// NewPageHandler はPageHandlerを生成する。テンプレートの解析に失敗した場合はエラーを返す。
func NewPageHandler(interviews InterviewLister, config PageConfig) (*PageHandler, error) {
	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("テンプレートの解析に失敗しました: %w", err)
	}

	return &PageHandler{
		interviews: interviews,
		config:     config,
		templates:  tmpl,
	}, nil
}

// Home はサインイン済みユーザーのホーム画面を表示する。
// ユーザーは保護領域ガードがコンテキストに格納したものを使う。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}

	interviews, err := h.interviews.ListForUser(r.Context(), user.ID, homeInterviewLimit)
	if err != nil {
		slog.Error("failed to list interviews",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		interviews = nil
	}

	h.render(w, "home.html", homePage{User: user, Interviews: interviews})
}

// SignIn はサインイン画面を表示する。
// GET /sign-in
func (h *PageHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	h.render(w, "auth.html", h.authPage("Sign in", "sign-in"))
}

// SignUp はサインアップ画面を表示する。
// GET /sign-up
func (h *PageHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.render(w, "auth.html", h.authPage("Create an account", "sign-up"))
}

// Static は埋め込みの静的ファイルを配信するハンドラーを返す。
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (h *PageHandler) authPage(title, mode string) authPage {
	return authPage{
		Title:      title,
		Mode:       mode,
		APIKey:     h.config.FirebaseWebAPIKey,
		ToolkitURL: strings.TrimRight(h.config.IdentityToolkitURL, "/"),
	}
}

// render はテンプレートをバッファに描画し、成功した場合のみレスポンスに書き込む。
func (h *PageHandler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
