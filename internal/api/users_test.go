package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/judyrop/storefront-api/models"
)

func registration() map[string]interface{} {
	return map[string]interface{}{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"username":  "ada",
		"email":     "ada@example.com",
		"password":  testPassword,
	}
}

func sessionCookie(w interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

func TestRegisterUser(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/users", registration(), 0)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	decodeBody(t, w, &resp)
	assert.Equal(t, "ada", resp["username"])
	assert.Equal(t, "Lovelace", resp["lastName"])
	assert.NotContains(t, resp, "password")

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	id, err := ts.sessions.Parse(cookie.Value)
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, ts.db.First(&stored, id).Error)
	assert.NotEqual(t, testPassword, stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))

	assert.Eventually(t, func() bool {
		sent := ts.mail.messages()
		return len(sent) == 1 && sent[0].To == "ada@example.com" && sent[0].From == "shop@example.com"
	}, time.Second, 10*time.Millisecond)
}

func TestRegisterUserValidationFailure(t *testing.T) {
	ts := newTestServer(t)
	body := registration()
	delete(body, "password")

	w := ts.do(t, http.MethodPost, "/users", body, 0)

	assertError(t, w, http.StatusBadRequest, "password is required")
	assert.Zero(t, count(t, ts.db, &models.User{}))
	assert.Nil(t, sessionCookie(w))
}

func TestRegisterUserDuplicate(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/users", registration(), 0).Code)

	w := ts.do(t, http.MethodPost, "/users", registration(), 0)

	assertError(t, w, http.StatusBadRequest, "A record with the same unique value already exists.")
	assert.Equal(t, int64(1), count(t, ts.db, &models.User{}))
}

func TestRegisterRequiresAnonymous(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "grace")

	w := ts.do(t, http.MethodPost, "/users", registration(), user.ID)

	assertError(t, w, http.StatusBadRequest, "Forbidden Access")
	assert.Equal(t, int64(1), count(t, ts.db, &models.User{}))
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "grace")

	tests := []struct {
		name     string
		username string
		password string
		status   int
	}{
		{"by username", "grace", testPassword, http.StatusOK},
		{"by email", "grace@example.com", testPassword, http.StatusOK},
		{"wrong password", "grace", "not the password", http.StatusBadRequest},
		{"unknown user", "nobody", testPassword, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/users/login", map[string]string{
				"username": tt.username,
				"password": tt.password,
			}, 0)

			if tt.status != http.StatusOK {
				assertError(t, w, tt.status, "Invalid username or password")
				assert.Nil(t, sessionCookie(w))
				return
			}
			assert.Equal(t, http.StatusOK, w.Code)
			cookie := sessionCookie(w)
			require.NotNil(t, cookie)
			id, err := ts.sessions.Parse(cookie.Value)
			require.NoError(t, err)
			assert.Equal(t, user.ID, id)
		})
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "grace")

	w := ts.do(t, http.MethodPost, "/users/logout", nil, user.ID)

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestListUsersRequiresLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "grace")

	assertError(t, ts.do(t, http.MethodGet, "/users", nil, 0), http.StatusBadRequest, "Unauthorized Access")
	assertError(t, ts.do(t, http.MethodGet, "/users", nil, 999), http.StatusBadRequest, "Unauthorized Access")
}

func TestListUsers(t *testing.T) {
	ts := newTestServer(t)
	grace := ts.createUser(t, "grace")
	ts.createUser(t, "linus")

	w := ts.do(t, http.MethodGet, "/users", nil, grace.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Users []models.User `json:"users"`
	}
	decodeBody(t, w, &resp)
	assert.Len(t, resp.Users, 2)

	w = ts.do(t, http.MethodGet, "/users?username=linus", nil, grace.ID)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "linus", resp.Users[0].Username)

	w = ts.do(t, http.MethodGet, "/users?role=admin", nil, grace.ID)
	assertError(t, w, http.StatusBadRequest, "Additional property role is not allowed")
}

func TestUsersExist(t *testing.T) {
	ts := newTestServer(t)
	grace := ts.createUser(t, "grace")

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodHead, "/users?username=grace", nil, grace.ID).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodHead, "/users?email=grace@example.com", nil, grace.ID).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodHead, "/users?username=nobody", nil, grace.ID).Code)
}

func TestShowSelf(t *testing.T) {
	ts := newTestServer(t)
	grace := ts.createUser(t, "grace")

	w := ts.do(t, http.MethodGet, "/users/self", nil, grace.ID)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.User
	decodeBody(t, w, &resp)
	assert.Equal(t, grace.ID, resp.ID)
	assert.Equal(t, "grace", resp.Username)
}

func TestUpdateSelfChangesOnlyGivenFields(t *testing.T) {
	ts := newTestServer(t)
	grace := ts.createUser(t, "grace")

	w := ts.do(t, http.MethodPatch, "/users/self", map[string]string{"lastName": "Hopper"}, grace.ID)

	require.Equal(t, http.StatusOK, w.Code)
	var stored models.User
	require.NoError(t, ts.db.First(&stored, grace.ID).Error)
	assert.Equal(t, "Hopper", stored.LastName)
	assert.Equal(t, grace.FirstName, stored.FirstName)
	assert.Equal(t, grace.Username, stored.Username)
	assert.Equal(t, grace.Email, stored.Email)
	assert.Equal(t, grace.PasswordHash, stored.PasswordHash)
}

func TestUpdateSelfRejectsInvalidPayloads(t *testing.T) {
	ts := newTestServer(t)
	grace := ts.createUser(t, "grace")
	ts.createUser(t, "linus")

	tests := []struct {
		name    string
		body    interface{}
		message string
	}{
		{"password", map[string]string{"password": "hunter2222"}, "Additional property password is not allowed"},
		{"email format", map[string]string{"email": "nope"}, "Does not match format 'email'"},
		{"taken username", map[string]string{"username": "linus"}, "A record with the same unique value already exists."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPatch, "/users/self", tt.body, grace.ID)
			assertError(t, w, http.StatusBadRequest, tt.message)
		})
	}

	var stored models.User
	require.NoError(t, ts.db.First(&stored, grace.ID).Error)
	assert.Equal(t, "grace", stored.Username)
	assert.Equal(t, grace.Email, stored.Email)
}
