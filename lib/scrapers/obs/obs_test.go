package obs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"obswatch/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const fakeLoginPage = `
<html><body>
<form method="post" action="login.aspx">
<input type="hidden" name="__VIEWSTATE" value="viewstate-token" />
<input type="hidden" name="__EVENTVALIDATION" value="eventvalidation-token" />
<input type="text" id="txtParamT01" name="txtParamT01" />
<input type="password" id="txtParamT02" name="txtParamT02" />
<img id="imgCaptchaImg" src="/oibs/std/captcha.aspx" />
<input type="text" id="txtSecCode" name="txtSecCode" />
<input type="submit" id="btnLogin" name="btnLogin" />
</form>
</body></html>`

const fakeStartPage = `
<html><body>
<span>Hoşgeldiniz</span>
<a href="logout.aspx">Çıkış</a>
</body></html>`

const fakeLoginError = `
<html><body>
<form method="post" action="login.aspx">
<span id="lblSonuclar">Güvenlik kodu hatalı</span>
<img id="imgCaptchaImg" src="/oibs/std/captcha.aspx" />
<input type="text" id="txtSecCode" name="txtSecCode" />
</form>
</body></html>`

type fakePortal struct {
	username string
	password string
	answer   string

	loginAttempts int
	sessionDead   bool
}

func (p *fakePortal) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /oibs/std/login.aspx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fakeLoginPage)
	})
	mux.HandleFunc("GET /oibs/std/captcha.aspx", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("captcha-image-bytes"))
	})
	mux.HandleFunc("POST /oibs/std/login.aspx", func(w http.ResponseWriter, r *http.Request) {
		p.loginAttempts++
		if r.FormValue("__VIEWSTATE") != "viewstate-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.FormValue("txtParamT01") == p.username &&
			r.FormValue("txtParamT02") == p.password &&
			r.FormValue("txtSecCode") == p.answer {
			fmt.Fprint(w, fakeStartPage)
			return
		}
		fmt.Fprint(w, fakeLoginError)
	})
	mux.HandleFunc("GET /oibs/std/index.aspx", func(w http.ResponseWriter, r *http.Request) {
		if p.sessionDead {
			fmt.Fprint(w, fakeLoginPage)
			return
		}
		fmt.Fprint(w, gradePage)
	})
	return mux
}

// fakeSolver pops answers off a queue, one per captcha image
type fakeSolver struct {
	answers []string
	calls   int
}

func (s *fakeSolver) Solve(ctx context.Context, image []byte) (string, error) {
	s.calls++
	if len(s.answers) == 0 {
		return "", fmt.Errorf("fake solver ran out of answers")
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func newTestClient(t *testing.T, portal *fakePortal, solver *fakeSolver, attempts int) (*Client, func()) {
	server := httptest.NewServer(portal.handler())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	client, err := NewClient(ctx, ClientOptions{
		BaseUrl:          server.URL,
		Solver:           solver,
		MaxLoginAttempts: attempts,
	})
	require.NoError(t, err)

	return client, func() {
		cancel()
		server.Close()
	}
}

func TestLoginSucceedsWithinRetryBudget(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/obs")
	defer cleanup()

	portal := &fakePortal{username: "student", password: "hunter2", answer: "42"}
	// two misreads, then the correct answer on the third fresh captcha
	solver := &fakeSolver{answers: []string{"41", "24", "42"}}
	client, teardown := newTestClient(t, portal, solver, 3)
	defer teardown()

	err := client.Login(context.Background(), "student", "hunter2")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, client.State())
	require.Equal(t, 3, solver.calls)
	require.Equal(t, 3, portal.loginAttempts)
}

func TestLoginExhaustsRetryBudget(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/obs")
	defer cleanup()

	portal := &fakePortal{username: "student", password: "hunter2", answer: "42"}
	solver := &fakeSolver{answers: []string{"1", "2", "3", "4", "5"}}
	client, teardown := newTestClient(t, portal, solver, 3)
	defer teardown()

	err := client.Login(context.Background(), "student", "hunter2")
	require.ErrorIs(t, err, ErrLoginFailed)
	require.Equal(t, StateLoginFailed, client.State())
	// the budget is exact, never a loop
	require.Equal(t, 3, solver.calls)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/obs")
	defer cleanup()

	portal := &fakePortal{username: "student", password: "hunter2", answer: "42"}
	solver := &fakeSolver{answers: []string{"42", "42"}}
	client, teardown := newTestClient(t, portal, solver, 2)
	defer teardown()

	err := client.Login(context.Background(), "student", "wrong-password")
	require.ErrorIs(t, err, ErrLoginFailed)
	require.Equal(t, StateLoginFailed, client.State())
}

func TestFetchRequiresAuthentication(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/obs")
	defer cleanup()

	portal := &fakePortal{username: "student", password: "hunter2", answer: "42"}
	solver := &fakeSolver{}
	client, teardown := newTestClient(t, portal, solver, 1)
	defer teardown()

	_, err := client.Fetch(context.Background(), GradesPath)
	require.Error(t, err)
}

func TestFetchDetectsExpiredSession(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/obs")
	defer cleanup()

	portal := &fakePortal{username: "student", password: "hunter2", answer: "42"}
	solver := &fakeSolver{answers: []string{"42"}}
	client, teardown := newTestClient(t, portal, solver, 1)
	defer teardown()

	err := client.Login(context.Background(), "student", "hunter2")
	require.NoError(t, err)

	page, err := client.Fetch(context.Background(), GradesPath)
	require.NoError(t, err)

	snapshot, err := ExtractGrades(context.Background(), page)
	require.NoError(t, err)
	require.NotEmpty(t, snapshot)

	// the portal invalidates the session server-side; the next fetch
	// must surface it instead of silently re-authenticating
	portal.sessionDead = true
	_, err = client.Fetch(context.Background(), GradesPath)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Equal(t, StateExpired, client.State())
}
