package review

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Resource is an organization, project or repository as returned by the remote side.
//
// Enabled is the server-side activation flag of a repository. IsActive is the
// client-side selection flag; it is never sent to the remote side and is always
// recomputed by Hydrate from the persisted selection.
type Resource struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ParentName       string `json:"parentName,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
	Credential       string `json:"credential,omitempty"`
	CredentialValid  bool   `json:"credentialValid,omitempty"`
	Enabled          bool   `json:"enabled,omitempty"`
	IsActive         bool   `json:"-"`
}

// Organization returns the name of the organization the resource belongs to.
// Projects carry it as their parent; repositories carry it explicitly.
func (r Resource) Organization() string {
	if r.OrganizationName != "" {
		return r.OrganizationName
	}
	return r.ParentName
}

// QualifiedName is the "parent - name" label used to order and display sub-resources.
func (r Resource) QualifiedName() string {
	if r.ParentName == "" {
		return r.Name
	}
	return r.ParentName + " - " + r.Name
}

// Scope names a persisted selection set.
type Scope string

const (
	ScopeProjects     Scope = "selectedProjectIds"
	ScopeRepositories Scope = "selectedRepositoryIds"
)

// UniqueIDs returns the ids of items in order, dropping repeats.
func UniqueIDs(items []Resource) []string {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		ids = append(ids, item.ID)
	}
	return ids
}

// SortByQualifiedName returns a copy of items ordered by QualifiedName using
// locale-aware collation. The input is left untouched.
func SortByQualifiedName(items []Resource) []Resource {
	out := slices.Clone(items)
	c := collate.New(language.Und)
	slices.SortStableFunc(out, func(a, b Resource) int {
		return c.CompareString(a.QualifiedName(), b.QualifiedName())
	})
	return out
}

// Active returns the items whose IsActive flag is set, in input order.
func Active(items []Resource) []Resource {
	out := make([]Resource, 0, len(items))
	for _, item := range items {
		if item.IsActive {
			out = append(out, item)
		}
	}
	return out
}
