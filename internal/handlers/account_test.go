package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexlet/typoreporter/internal/accounts"
	"github.com/hexlet/typoreporter/internal/auth"
	"github.com/hexlet/typoreporter/internal/handlers"
)

var inputValue = regexp.MustCompile(`name="(username|email|firstName|lastName)" type="[a-z]+" value="([^"]*)"`)

func formValues(t *testing.T, body string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, m := range inputValue.FindAllStringSubmatch(body, -1) {
		out[m[1]] = m[2]
	}
	require.Len(t, out, 4, "profile form inputs not found in %s", body)
	return out
}

func TestAccountInfoPage(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	app.store.AddWorkspaceRole(app.alice.ID, accounts.WorkspaceRoleInfo{WorkspaceName: "zeta-docs", Role: "USER"})
	app.store.AddWorkspaceRole(app.alice.ID, accounts.WorkspaceRoleInfo{WorkspaceName: "alpha-blog", Role: "ADMIN"})
	cookie := app.sessionCookie(t, app.alice)

	for _, path := range []string{"/account", handlers.AccountPath} {
		rec := app.get(t, path, cookie)
		require.Equal(t, http.StatusOK, rec.Code, path)
		body := rec.Body.String()
		assert.Contains(t, body, "alice@example.com")
		assert.Contains(t, body, "Liddell")
		alpha, zeta := strings.Index(body, "alpha-blog"), strings.Index(body, "zeta-docs")
		require.NotEqual(t, -1, alpha)
		require.NotEqual(t, -1, zeta)
		assert.Less(t, alpha, zeta, "workspaces are listed by name")
	}
}

func TestAccountInfoWithoutWorkspaces(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	rec := app.get(t, "/account", app.sessionCookie(t, app.alice))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a member of any workspace")
}

func TestAccountPagesRequireSession(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	for _, path := range []string{"/", "/account", "/account/update", "/account/password"} {
		rec := app.get(t, path, nil)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation), path)
	}
	rec := app.put(t, "/account/update", profileValues("mallory", "m@example.com", "M", "M"), nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, 0, app.store.Calls("UpdateProfile"))
}

func TestProfileFormStartsUnmodified(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	rec := app.get(t, "/account/update", app.sessionCookie(t, app.alice))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-form-modified="false"`)
	assert.NotContains(t, rec.Body.String(), "invalid-feedback")
	assert.Equal(t, map[string]string{
		"username": "alice", "email": "alice@example.com", "firstName": "Alice", "lastName": "Liddell",
	}, formValues(t, rec.Body.String()))
}

func TestSubmitProfileValidationFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
		keeps string
	}{
		{name: "empty last name", key: "lastName", value: "", keeps: `value="alice@example.com"`},
		{name: "blank first name", key: "firstName", value: "   ", keeps: `value="Liddell"`},
		{name: "email without at", key: "email", value: "alice.example.com", keeps: `value="alice.example.com"`},
		{name: "bad username", key: "username", value: "a", keeps: `value="a"`},
		{name: "long last name", key: "lastName", value: strings.Repeat("L", 51), keeps: `value="alice"`},
		{name: "email wider than column", key: "email", value: strings.Repeat("a", 250) + "@example.com", keeps: `value="alice"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			app := newTestApp(t)
			values := profileValues("alice", "alice@example.com", "Alice", "Liddell")
			values.Set(tt.key, tt.value)

			rec := app.put(t, "/account/update", values, app.sessionCookie(t, app.alice))
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, `action="/account/update"`)
			assert.Contains(t, body, `data-form-modified="true"`)
			assert.Contains(t, body, `data-field="`+tt.key+`"`)
			assert.Contains(t, body, tt.keeps)
			assert.Equal(t, 0, app.store.Calls("UpdateProfile"))
			assert.Equal(t, 0, app.store.Calls("FindConflict"))
			assert.Nil(t, app.sessionFrom(rec))
		})
	}
}

func TestSubmitProfileSuccessReplacesSession(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	old := app.sessionCookie(t, app.alice)

	rec := app.put(t, "/account/update", profileValues("alice2", "Alice2@Example.COM", "Alice", "Pleasance"), old)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, handlers.AccountPath, rec.Header().Get(echo.HeaderLocation))

	stored, ok := app.store.Get("alice2")
	require.True(t, ok)
	assert.Equal(t, "alice2@example.com", stored.Email)

	p, ok := app.principalFrom(t, rec)
	require.True(t, ok, "session cookie must be re-issued")
	assert.Equal(t, auth.Principal{
		Username:   stored.Username,
		Credential: auth.Fingerprint(stored.PasswordHash),
		Roles:      []string{accounts.RoleUser},
	}, p)

	next := app.get(t, handlers.AccountPath, app.sessionFrom(rec))
	require.Equal(t, http.StatusOK, next.Code)
	assert.Contains(t, next.Body.String(), "alice2@example.com")

	stale := app.get(t, handlers.AccountPath, old)
	assert.Equal(t, http.StatusInternalServerError, stale.Code)
}

func TestSubmitProfileConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		email    string
		field    string
	}{
		{name: "username taken", username: "bob", email: "alice@example.com", field: "username"},
		{name: "email taken", username: "alice", email: "bob@example.com", field: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			app := newTestApp(t)
			app.store.Seed("bob", "bob@example.com", "builder42", "Bob", "Builder")

			rec := app.put(t, "/account/update", profileValues(tt.username, tt.email, "Alice", "Liddell"), app.sessionCookie(t, app.alice))
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, `action="/account/update"`)
			assert.Contains(t, body, `data-form-modified="true"`)
			assert.Regexp(t, `data-field="`+tt.field+`">Account with `+tt.field+` &#34;[a-z@.]+&#34; already exists`, body)
			assert.Nil(t, app.sessionFrom(rec))

			stored, ok := app.store.Get("alice")
			require.True(t, ok)
			assert.Equal(t, app.alice.Email, stored.Email)
		})
	}
}

func TestProfileNoopRoundTrip(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	cookie := app.sessionCookie(t, app.alice)

	first := app.get(t, "/account/update", cookie)
	require.Equal(t, http.StatusOK, first.Code)
	before := formValues(t, first.Body.String())

	submit := app.put(t, "/account/update",
		profileValues(before["username"], before["email"], before["firstName"], before["lastName"]), cookie)
	require.Equal(t, http.StatusSeeOther, submit.Code)

	after := app.get(t, "/account/update", app.sessionFrom(submit))
	require.Equal(t, http.StatusOK, after.Code)
	assert.Equal(t, before, formValues(t, after.Body.String()))
}

func TestPasswordFormIsFresh(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	rec := app.get(t, "/account/password", app.sessionCookie(t, app.alice))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-form-modified="false"`)
	assert.NotContains(t, body, "invalid-feedback")
	assert.Equal(t, 0, app.store.Calls("GetByUsername"))
}

func TestSubmitPasswordFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		form        [3]string
		field       string
		message     string
		serviceCall bool
	}{
		{name: "old password wrong", form: [3]string{"guess1234", "n3wpassword", "n3wpassword"}, field: "oldPassword", message: "Wrong current password", serviceCall: true},
		{name: "new equals old", form: [3]string{alicePassword, alicePassword, alicePassword}, field: "newPassword", message: "New password must differ", serviceCall: true},
		{name: "confirmation mismatch", form: [3]string{alicePassword, "n3wpassword", "n3wpassw0rd"}, field: "confirmNewPassword", message: "passwords do not match"},
		{name: "too short", form: [3]string{alicePassword, "n3w", "n3w"}, field: "newPassword", message: "must be 8 to 72 characters"},
		{name: "missing old", form: [3]string{"", "n3wpassword", "n3wpassword"}, field: "oldPassword", message: "must not be blank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			app := newTestApp(t)

			rec := app.put(t, "/account/password", passwordValues(tt.form[0], tt.form[1], tt.form[2]), app.sessionCookie(t, app.alice))
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, `action="/account/password"`)
			assert.Contains(t, body, `data-form-modified="true"`)
			assert.Contains(t, body, `data-field="`+tt.field+`">`+tt.message)
			assert.NotContains(t, body, `value="`+tt.form[1]+`"`, "password values are never echoed")
			assert.Nil(t, app.sessionFrom(rec), "session must stay unchanged")
			assert.Equal(t, 0, app.store.Calls("UpdatePassword"))
			if !tt.serviceCall {
				assert.Equal(t, 0, app.store.Calls("GetByUsername"))
			}
		})
	}
}

func TestSubmitPasswordSuccess(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	old := app.sessionCookie(t, app.alice)

	rec := app.put(t, "/account/password", passwordValues(alicePassword, "l00kingglass", "l00kingglass"), old)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, handlers.AccountPath, rec.Header().Get(echo.HeaderLocation))

	stored, ok := app.store.Get("alice")
	require.True(t, ok)
	p, ok := app.principalFrom(t, rec)
	require.True(t, ok)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, auth.Fingerprint(stored.PasswordHash), p.Credential)
	assert.NotEqual(t, auth.Fingerprint(app.alice.PasswordHash), p.Credential, "credential follows the new password")
	assert.Equal(t, 1, app.store.Calls("UpdatePassword"))
}

func TestSessionOfRenamedAccountDoesNotReachNewOwner(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	old := app.sessionCookie(t, app.alice)

	rec := app.put(t, "/account/update", profileValues("alice2", "alice@example.com", "Alice", "Liddell"), old)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	app.store.Seed("alice", "mallory@example.com", "m4llorypass", "Mallory", "Malice")

	view := app.get(t, "/account", old)
	require.Equal(t, http.StatusFound, view.Code)
	assert.Equal(t, "/login", view.Header().Get(echo.HeaderLocation))
	assert.NotContains(t, view.Body.String(), "mallory@example.com")
	assert.Contains(t, view.Header().Get(echo.HeaderSetCookie), "Max-Age=0")

	edit := app.put(t, "/account/update", profileValues("alice", "owned@example.com", "Eve", "Evil"), old)
	require.Equal(t, http.StatusFound, edit.Code)
	mallory, ok := app.store.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "mallory@example.com", mallory.Email)
	assert.Equal(t, "Mallory", mallory.FirstName)
}

func TestPasswordChangeRevokesEarlierSessions(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	old := app.sessionCookie(t, app.alice)
	otherDevice := app.sessionCookie(t, app.alice)

	rec := app.put(t, "/account/password", passwordValues(alicePassword, "l00kingglass", "l00kingglass"), old)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	for name, cookie := range map[string]*http.Cookie{"same device": old, "other device": otherDevice} {
		stale := app.get(t, "/account", cookie)
		assert.Equal(t, http.StatusFound, stale.Code, name)
		assert.Equal(t, "/login", stale.Header().Get(echo.HeaderLocation), name)
	}

	fresh := app.get(t, "/account", app.sessionFrom(rec))
	require.Equal(t, http.StatusOK, fresh.Code)
	assert.Contains(t, fresh.Body.String(), "alice@example.com")
}

func TestMissingAccountRendersErrorPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		do   func(t *testing.T, app *testApp, cookie *http.Cookie) *httptest.ResponseRecorder
	}{
		{name: "view info", do: func(t *testing.T, app *testApp, cookie *http.Cookie) *httptest.ResponseRecorder {
			return app.get(t, "/account", cookie)
		}},
		{name: "view profile form", do: func(t *testing.T, app *testApp, cookie *http.Cookie) *httptest.ResponseRecorder {
			return app.get(t, "/account/update", cookie)
		}},
		{name: "submit profile", do: func(t *testing.T, app *testApp, cookie *http.Cookie) *httptest.ResponseRecorder {
			return app.put(t, "/account/update", profileValues("alice", "alice@example.com", "A", "L"), cookie)
		}},
		{name: "submit password", do: func(t *testing.T, app *testApp, cookie *http.Cookie) *httptest.ResponseRecorder {
			return app.put(t, "/account/password", passwordValues(alicePassword, "n3wpassword", "n3wpassword"), cookie)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			app := newTestApp(t)
			cookie := app.sessionCookie(t, app.alice)
			app.store.Delete("alice")

			rec := tt.do(t, app, cookie)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "Something went wrong")
			assert.Contains(t, body, "Account not found")
			assert.NotContains(t, body, "<form method=\"post\" action=\"/account")
			assert.Nil(t, app.sessionFrom(rec))

			logs := app.logs.String()
			assert.Contains(t, logs, `level=ERROR msg="account not found"`)
			assert.Contains(t, logs, `error="account not found"`)
			assert.Contains(t, logs, "username=alice")
			assert.Equal(t, 0, app.store.Calls("UpdateProfile"))
			assert.Equal(t, 0, app.store.Calls("UpdatePassword"))
		})
	}
}
