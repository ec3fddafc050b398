package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anistream/anistream/filesystem"
	"github.com/anistream/anistream/internal/store"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"
)

func init() {
	filesystem.SetMemMapFs()
	keyring.MockInit()
}

func jwt(claims string) string {
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte(claims)) + ".sig"
}

func backend(handler func(w http.ResponseWriter, body map[string]string)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make(map[string]string)
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["path"] = r.URL.Path
		handler(w, body)
	}))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	Convey("Given an auth backend", t, func() {
		sessions := NewMemoryStore()

		Convey("A response with a user is stored as is", func() {
			srv := backend(func(w http.ResponseWriter, body map[string]string) {
				_, _ = w.Write([]byte(`{"token": "t1", "user": {"id": 42, "username": "zoro", "email": "z@x.io"}}`))
			})
			defer srv.Close()

			session, err := NewClient(srv.URL, srv.Client(), sessions).Login(ctx, "z@x.io", "pw")
			So(err, ShouldBeNil)
			So(session.User.ID, ShouldEqual, "42")
			So(session.Name(), ShouldEqual, "zoro")

			stored, _ := sessions.Read()
			So(stored.Token, ShouldEqual, "t1")
		})

		Convey("A bare token is expanded from its claims", func() {
			token := jwt(`{"user_id": 17}`)
			srv := backend(func(w http.ResponseWriter, body map[string]string) {
				_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
			})
			defer srv.Close()

			session, err := NewClient(srv.URL, srv.Client(), sessions).Login(ctx, "luffy@sea.io", "pw")
			So(err, ShouldBeNil)
			So(session.User.ID, ShouldEqual, "17")
			So(session.User.Username, ShouldEqual, "luffy")
			So(session.User.Email, ShouldEqual, "luffy@sea.io")
		})

		Convey("Rejected credentials are reported", func() {
			srv := backend(func(w http.ResponseWriter, body map[string]string) {
				w.WriteHeader(http.StatusUnauthorized)
			})
			defer srv.Close()

			_, err := NewClient(srv.URL, srv.Client(), sessions).Login(ctx, "a@b.c", "bad")
			So(errors.Is(err, ErrInvalidCredentials), ShouldBeTrue)

			stored, _ := sessions.Read()
			So(stored.Valid(), ShouldBeFalse)
		})

		Convey("Registration without a token logs in", func() {
			var paths, usernames []string
			srv := backend(func(w http.ResponseWriter, body map[string]string) {
				paths = append(paths, body["path"])
				if body["path"] == "/api/auth/register" {
					usernames = append(usernames, body["username"])
					_, _ = w.Write([]byte(`{"message": "registered successfully"}`))
					return
				}
				_, _ = w.Write([]byte(`{"token": "t2", "user": {"userID": "9", "username": "nami"}}`))
			})
			defer srv.Close()

			session, err := NewClient(srv.URL, srv.Client(), sessions).Register(ctx, "nami", "nami@sea.io", "pw")
			So(err, ShouldBeNil)
			So(paths, ShouldResemble, []string{"/api/auth/register", "/api/auth/login"})
			So(usernames, ShouldResemble, []string{"nami"})
			So(session.Token, ShouldEqual, "t2")
			So(session.User.ID, ShouldEqual, "9")
		})

		Convey("Backend errors carry their message", func() {
			srv := backend(func(w http.ResponseWriter, body map[string]string) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error": "email taken"}`))
			})
			defer srv.Close()

			_, err := NewClient(srv.URL, srv.Client(), sessions).Register(ctx, "a", "a@b.c", "pw")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "email taken")
		})
	})
}

func TestUserFromToken(t *testing.T) {
	Convey("userFromToken", t, func() {
		Convey("falls back to the email for malformed tokens", func() {
			u := userFromToken("not-a-jwt", "sanji@sea.io")
			So(u.ID, ShouldBeEmpty)
			So(u.Username, ShouldEqual, "sanji")
		})

		Convey("accepts string ids", func() {
			So(userFromToken(jwt(`{"user_id": "abc"}`), "x@y.z").ID, ShouldEqual, "abc")
		})
	})
}

func TestKeyringStore(t *testing.T) {
	Convey("Given a keyring store", t, func() {
		s := NewKeyringStore(store.NewMemory[*User](nil))

		Convey("An empty keyring reads as logged out", func() {
			session, err := s.Read()
			So(err, ShouldBeNil)
			So(session.Valid(), ShouldBeFalse)
		})

		Convey("A written session is read back and announced", func() {
			var seen []Session
			cancel := s.Subscribe(func(session Session) { seen = append(seen, session) })
			defer cancel()

			So(s.Write(Session{Token: "t", User: &User{ID: "1", Email: "usopp@sea.io"}}), ShouldBeNil)
			session, err := s.Read()
			So(err, ShouldBeNil)
			So(session.Token, ShouldEqual, "t")
			So(session.Name(), ShouldEqual, "usopp")
			So(Token(s)(), ShouldEqual, "t")

			Convey("and cleared on logout", func() {
				So(s.Clear(), ShouldBeNil)
				session, _ := s.Read()
				So(session.Valid(), ShouldBeFalse)
				So(seen, ShouldHaveLength, 2)
				So(seen[1].Valid(), ShouldBeFalse)
			})
		})
	})
}
