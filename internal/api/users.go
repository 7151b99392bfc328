package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/judyrop/storefront-api/internal/notify"
	"github.com/judyrop/storefront-api/internal/store"
	"github.com/judyrop/storefront-api/models"
)

type registrationRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registerUser creates the account, logs the new user in and sends a
// welcome message once the row is committed.
func (s *Server) registerUser(c *gin.Context) {
	var req registrationRequest
	if err := s.bindJSON(c, "registration.schema.json", &req); err != nil {
		s.respondError(c, err)
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	err = s.store.Do(c.Request.Context(), func(tx *gorm.DB) error {
		return tx.Create(&user).Error
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.sessions.Issue(c, user.ID); err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.UserRegistered()
	s.mailer.Dispatch(welcomeMessage(user))

	c.JSON(http.StatusCreated, user)
}

func welcomeMessage(user models.User) notify.Message {
	return notify.Message{
		To:      user.Email,
		Subject: "Welcome to the store!",
		HTML:    fmt.Sprintf("<html><body><p>Welcome, %s!</p></body></html>", user.FirstName),
		Text:    fmt.Sprintf("Welcome, %s!", user.FirstName),
	}
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := s.bindJSON(c, "login.schema.json", &req); err != nil {
		s.respondError(c, err)
		return
	}

	invalid := badRequest("Invalid username or password")

	var user models.User
	err := s.store.Read(c.Request.Context()).
		Where("username = ? OR email = ?", req.Username, req.Username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.respondError(c, invalid)
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn("stored password hash is unreadable", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	if !ok {
		s.respondError(c, invalid)
		return
	}

	if err := s.sessions.Issue(c, user.ID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) logout(c *gin.Context) {
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) filteredUsers(c *gin.Context) (*gorm.DB, error) {
	filters, err := s.bindQuery(c, "users_filter.schema.json")
	if err != nil {
		return nil, err
	}

	query := s.store.Read(c.Request.Context()).Model(&models.User{})
	if username, ok := filters["username"]; ok {
		query = query.Where("username = ?", username)
	}
	if email, ok := filters["email"]; ok {
		query = query.Where("email = ?", email)
	}
	return query, nil
}

func (s *Server) listUsers(c *gin.Context) {
	query, err := s.filteredUsers(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	users := []models.User{}
	if err := query.Order("id").Find(&users).Error; err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// usersExist answers HEAD requests with 200 when a user matches the filters.
func (s *Server) usersExist(c *gin.Context) {
	query, err := s.filteredUsers(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		s.respondError(c, err)
		return
	}
	if count == 0 {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) showSelf(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// updateSelf merges every validated key onto the caller's row. The
// update_self schema decides which keys may appear.
func (s *Server) updateSelf(c *gin.Context) {
	var fields map[string]interface{}
	if err := s.bindJSON(c, "update_self.schema.json", &fields); err != nil {
		s.respondError(c, err)
		return
	}

	me := currentUser(c)
	var updated models.User
	err := s.store.Do(c.Request.Context(), func(tx *gorm.DB) error {
		columns, err := store.UpdateColumns(tx, &models.User{}, fields)
		if err != nil {
			return err
		}
		if len(columns) > 0 {
			if err := tx.Model(&models.User{ID: me.ID}).Updates(columns).Error; err != nil {
				return err
			}
		}
		return tx.First(&updated, me.ID).Error
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
