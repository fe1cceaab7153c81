// Package directory resolves employees, their managers and contact details
// from the external identity service.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"timesheet/apperror"
	"timesheet/models"

	"go.uber.org/zap"
)

type Directory interface {
	EmployeesUnderManager(ctx context.Context, managerCode string) ([]models.User, error)
	UserByEmployeeCode(ctx context.Context, employeeCode string) (models.User, error)
	AllUsers(ctx context.Context) ([]models.User, error)
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token so directory calls are made
// on the caller's behalf.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
		log:     log,
	}
}

func (c *Client) EmployeesUnderManager(ctx context.Context, managerCode string) ([]models.User, error) {
	var users []models.User
	if err := c.get(ctx, "/ims/users/manager/"+url.PathEscape(managerCode), &users); err != nil {
		return nil, apperror.Dependency(err, "Failed to fetch employees under manager %s", managerCode)
	}
	return users, nil
}

func (c *Client) UserByEmployeeCode(ctx context.Context, employeeCode string) (models.User, error) {
	var user models.User
	if err := c.get(ctx, "/ims/users/"+url.PathEscape(employeeCode), &user); err != nil {
		return models.User{}, apperror.Dependency(err, "Failed to fetch user %s", employeeCode)
	}
	return user, nil
}

func (c *Client) AllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.get(ctx, "/ims/users/all", &users); err != nil {
		return nil, apperror.Dependency(err, "Failed to fetch users")
	}
	return users, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if token, ok := ctx.Value(tokenKey{}).(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("identity service unreachable", zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("identity service returned error", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("status code error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Codes returns the employee codes of users, in order.
func Codes(users []models.User) []string {
	codes := make([]string, 0, len(users))
	for _, u := range users {
		if u.EmployeeCode != "" {
			codes = append(codes, u.EmployeeCode)
		}
	}
	return codes
}
