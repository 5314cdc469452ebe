package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Preference keys.
const (
	PrefTheme          = "theme"
	PrefSessionCookies = "session.cookies"
	PrefSessionToken   = "session.token"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// GetPref returns the stored value and whether it exists.
func (s Store) GetPref(ctx context.Context, key string) (string, bool, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return "", false, err
	}
	defer db.Close()

	var v string
	err = db.QueryRowContext(ctx, `SELECT v FROM prefs WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s Store) SetPref(ctx context.Context, key, value string) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO prefs(k, v) VALUES(?, ?)`, key, value)
	return err
}

func (s Store) DeletePref(ctx context.Context, key string) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `DELETE FROM prefs WHERE k = ?`, key)
	return err
}

// Theme returns the saved theme; a missing or unknown value reads as light.
func (s Store) Theme(ctx context.Context) (string, error) {
	v, ok, err := s.GetPref(ctx, PrefTheme)
	if err != nil || !ok {
		return ThemeLight, err
	}
	if t, err := NormalizeTheme(v); err == nil {
		return t, nil
	}
	return ThemeLight, nil
}

func (s Store) SetTheme(ctx context.Context, theme string) error {
	t, err := NormalizeTheme(theme)
	if err != nil {
		return err
	}
	return s.SetPref(ctx, PrefTheme, t)
}

func NormalizeTheme(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", fmt.Errorf("invalid theme %q (expected light|dark)", v)
}
