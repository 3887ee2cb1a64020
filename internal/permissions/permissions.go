// Package permissions maps roles to the actions they may perform.
// The table is embedded and parsed once at startup.
package permissions

import (
	_ "embed"
	"fmt"
	"sort"

	"medcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

// Permission names an action guarded at the HTTP boundary.
type Permission string

const (
	QuotesRead         Permission = "quotes.read"
	QuotesCreate       Permission = "quotes.create"
	QuotesUpdate       Permission = "quotes.update"
	QuotesDelete       Permission = "quotes.delete"
	QuotesSend         Permission = "quotes.send"
	QuotesDecide       Permission = "quotes.decide"
	QuotesCancel       Permission = "quotes.cancel"
	QuotesStatistics   Permission = "quotes.statistics"
	QuotesPDF          Permission = "quotes.pdf"
	QuotesExpire       Permission = "quotes.expire"
	InstitutionsRead   Permission = "institutions.read"
	InstitutionsCreate Permission = "institutions.create"
)

const wildcard = "*"

//go:embed permissions.yaml
var defaultTable []byte

// Table answers role/permission questions.
type Table struct {
	roles map[string]map[Permission]struct{}
}

type tableFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// Load parses the embedded table.
func Load() (*Table, error) {
	return Parse(defaultTable)
}

// Parse builds a table from YAML.
func Parse(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse permission table: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("permission table defines no roles")
	}

	t := &Table{roles: make(map[string]map[Permission]struct{}, len(file.Roles))}
	for role, perms := range file.Roles {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[Permission(p)] = struct{}{}
		}
		t.roles[role] = set
	}
	return t, nil
}

// Can reports whether role grants perm.
func (t *Table) Can(role string, perm Permission) bool {
	set, ok := t.roles[role]
	if !ok {
		return false
	}
	if _, all := set[wildcard]; all {
		return true
	}
	_, granted := set[perm]
	return granted
}

// CanAny reports whether any of roles grants perm.
func (t *Table) CanAny(roles []string, perm Permission) bool {
	for _, role := range roles {
		if t.Can(role, perm) {
			return true
		}
	}
	return false
}

// Roles lists the known roles, sorted.
func (t *Table) Roles() []string {
	out := make([]string, 0, len(t.roles))
	for role := range t.roles {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// Require aborts with 403 unless the authenticated user holds a role granting perm.
func Require(t *Table, perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httpkit.GetIdentity(c)
		if !ok || !t.CanAny(id.Roles, perm) {
			httpkit.AbortForbidden(c)
			return
		}
		c.Next()
	}
}
