package permission

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"

	"govportal/backend/internal/permission/catalog"
	"govportal/backend/internal/permission/domain"
)

type templateMapping struct{ user, group, org string }

type customGroup struct {
	org   string
	codes []string
}

// memRepo keeps the group tables in maps and answers the two org branches independently.
type memRepo struct {
	mu sync.Mutex

	systemGroups  map[string][]string
	systemMembers map[string][]string // user -> groups

	templateGroups   map[string][]string
	templateMappings []templateMapping

	customGroups  map[string]customGroup
	customMembers map[string][]string // user -> groups

	calls int
	err   error
}

func newMemRepo() *memRepo {
	return &memRepo{
		systemGroups:   make(map[string][]string),
		systemMembers:  make(map[string][]string),
		templateGroups: make(map[string][]string),
		customGroups:   make(map[string]customGroup),
		customMembers:  make(map[string][]string),
	}
}

// enter takes the lock; the caller releases it.
func (m *memRepo) enter() error {
	m.mu.Lock()
	m.calls++
	return m.err
}

func (m *memRepo) systemCodes(user string) []string {
	var out []string
	for _, g := range m.systemMembers[user] {
		out = append(out, m.systemGroups[g]...)
	}
	return out
}

func (m *memRepo) templateCodes(user, org string) []string {
	var out []string
	for _, tm := range m.templateMappings {
		if tm.user == user && tm.org == org {
			out = append(out, m.templateGroups[tm.group]...)
		}
	}
	return out
}

func (m *memRepo) customCodes(user, org string) []string {
	var out []string
	for _, g := range m.customMembers[user] {
		if cg, ok := m.customGroups[g]; ok && cg.org == org {
			out = append(out, cg.codes...)
		}
	}
	return out
}

func (m *memRepo) HasSystemCode(ctx context.Context, userID, code string) (bool, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return false, err
	}
	return contains(m.systemCodes(userID), code), nil
}

func (m *memRepo) HasTemplateOrgCode(ctx context.Context, userID, orgID, code string) (bool, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return false, err
	}
	return contains(m.templateCodes(userID, orgID), code), nil
}

func (m *memRepo) HasCustomOrgCode(ctx context.Context, userID, orgID, code string) (bool, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return false, err
	}
	return contains(m.customCodes(userID, orgID), code), nil
}

func (m *memRepo) ListSystemCodes(ctx context.Context, userID string) ([]string, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.systemCodes(userID), nil
}

func (m *memRepo) ListTemplateOrgCodes(ctx context.Context, userID, orgID string) ([]string, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.templateCodes(userID, orgID), nil
}

func (m *memRepo) ListCustomOrgCodes(ctx context.Context, userID, orgID string) ([]string, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.customCodes(userID, orgID), nil
}

func (m *memRepo) ListTemplateGrants(ctx context.Context, userID, orgID string) ([]domain.TemplateGrant, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []domain.TemplateGrant
	for _, tm := range m.templateMappings {
		if tm.user == userID && tm.org == orgID {
			codes := append([]string(nil), m.templateGroups[tm.group]...)
			out = append(out, domain.TemplateGrant{OrganizationID: orgID, GroupID: tm.group, GroupName: tm.group, Codes: codes})
		}
	}
	return out, nil
}

func (m *memRepo) ListCustomGrants(ctx context.Context, userID, orgID string) ([]domain.CustomGrant, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []domain.CustomGrant
	for _, g := range m.customMembers[userID] {
		if cg, ok := m.customGroups[g]; ok && cg.org == orgID {
			out = append(out, domain.CustomGrant{GroupID: g, GroupName: g, Codes: append([]string(nil), cg.codes...)})
		}
	}
	return out, nil
}

func contains(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

const (
	alice = "user-alice"
	orgA  = "org-a"
	orgB  = "org-b"
)

func TestHasOrgPermission_UnionOfBranches(t *testing.T) {
	repo := newMemRepo()
	repo.templateGroups["editors"] = []string{catalog.OrgNewsCreate, catalog.OrgNewsEdit}
	repo.templateMappings = append(repo.templateMappings, templateMapping{alice, "editors", orgA})
	repo.customGroups["publishers"] = customGroup{org: orgA, codes: []string{catalog.OrgNewsEdit, catalog.OrgNewsPublish}}
	repo.customMembers[alice] = []string{"publishers"}
	r := NewResolver(repo, nil)
	ctx := context.Background()

	for _, code := range []string{catalog.OrgNewsCreate, catalog.OrgNewsEdit, catalog.OrgNewsPublish} {
		ok, err := r.HasOrgPermission(ctx, alice, orgA, code)
		if err != nil || !ok {
			t.Errorf("HasOrgPermission(%s) = %v, %v; want true", code, ok, err)
		}
	}
	if ok, _ := r.HasOrgPermission(ctx, alice, orgA, catalog.OrgNewsDelete); ok {
		t.Error("org.news.delete should not be granted")
	}

	set, err := r.GetUserOrgPermissions(ctx, alice, orgA)
	if err != nil {
		t.Fatalf("GetUserOrgPermissions: %v", err)
	}
	want := []string{catalog.OrgNewsCreate, catalog.OrgNewsEdit, catalog.OrgNewsPublish}
	if got := keys(set); !reflect.DeepEqual(got, want) {
		t.Errorf("org permissions = %v, want %v", got, want)
	}
}

func TestHasOrgPermission_ScopeIsolation(t *testing.T) {
	repo := newMemRepo()
	repo.templateGroups["editors"] = []string{catalog.OrgServiceEdit}
	repo.templateMappings = append(repo.templateMappings, templateMapping{alice, "editors", orgA})
	repo.customGroups["b-staff"] = customGroup{org: orgB, codes: []string{catalog.OrgPersonView}}
	repo.customMembers[alice] = []string{"b-staff"}
	r := NewResolver(repo, nil)
	ctx := context.Background()

	if ok, _ := r.HasOrgPermission(ctx, alice, orgB, catalog.OrgServiceEdit); ok {
		t.Error("template mapping for org A must not grant in org B")
	}
	if ok, _ := r.HasOrgPermission(ctx, alice, orgA, catalog.OrgPersonView); ok {
		t.Error("custom group of org B must not grant in org A")
	}
	if ok, _ := r.HasOrgPermission(ctx, alice, orgB, catalog.OrgPersonView); !ok {
		t.Error("custom group of org B should grant in org B")
	}
	if ok, _ := r.HasSystemPermission(ctx, alice, catalog.OrgServiceEdit); ok {
		t.Error("org grants must not satisfy a system check")
	}
	set, _ := r.GetUserSystemPermissions(ctx, alice)
	if len(set) != 0 {
		t.Errorf("system permissions = %v, want empty", keys(set))
	}
}

func TestHasSystemPermission_Superadmin(t *testing.T) {
	repo := newMemRepo()
	repo.systemGroups["superadmins"] = []string{catalog.SystemSuperadmin}
	repo.systemMembers[alice] = []string{"superadmins"}
	r := NewResolver(repo, nil)
	ctx := context.Background()

	for _, code := range []string{catalog.SystemUsersDelete, catalog.SystemAuditView, "system.not.in.catalog", catalog.SystemSuperadmin} {
		ok, err := r.HasSystemPermission(ctx, alice, code)
		if err != nil || !ok {
			t.Errorf("HasSystemPermission(%s) = %v, %v; want true", code, ok, err)
		}
	}
	if ok, _ := r.HasOrgPermission(ctx, alice, orgA, catalog.OrgNewsView); ok {
		t.Error("superadmin must not bypass org checks")
	}
}

func TestHasSystemPermission_ExactCode(t *testing.T) {
	repo := newMemRepo()
	repo.systemGroups["auditors"] = []string{catalog.SystemAuditView, catalog.SystemUsersView}
	repo.systemGroups["viewers"] = []string{catalog.SystemUsersView, catalog.SystemGroupsView}
	repo.systemMembers[alice] = []string{"auditors", "viewers"}
	r := NewResolver(repo, nil)
	ctx := context.Background()

	if ok, _ := r.HasSystemPermission(ctx, alice, catalog.SystemAuditView); !ok {
		t.Error("system.audit.view should be granted")
	}
	if ok, _ := r.HasSystemPermission(ctx, alice, catalog.SystemUsersEdit); ok {
		t.Error("system.users.edit should not be granted")
	}
	set, err := r.GetUserSystemPermissions(ctx, alice)
	if err != nil {
		t.Fatalf("GetUserSystemPermissions: %v", err)
	}
	want := []string{catalog.SystemAuditView, catalog.SystemGroupsView, catalog.SystemUsersView}
	if got := keys(set); !reflect.DeepEqual(got, want) {
		t.Errorf("system permissions = %v, want %v", got, want)
	}
}

func TestResolver_EmptyArgumentsSkipStore(t *testing.T) {
	repo := newMemRepo()
	r := NewResolver(repo, nil)
	ctx := context.Background()

	if ok, err := r.HasSystemPermission(ctx, "", catalog.SystemUsersView); ok || err != nil {
		t.Errorf("empty user: %v, %v", ok, err)
	}
	if ok, err := r.HasSystemPermission(ctx, alice, ""); ok || err != nil {
		t.Errorf("empty code: %v, %v", ok, err)
	}
	if ok, err := r.HasOrgPermission(ctx, alice, "", catalog.OrgNewsView); ok || err != nil {
		t.Errorf("empty org: %v, %v", ok, err)
	}
	if set, err := r.GetUserOrgPermissions(ctx, alice, ""); err != nil || set == nil || len(set) != 0 {
		t.Errorf("empty org set: %v, %v", set, err)
	}
	if repo.calls != 0 {
		t.Errorf("store calls = %d, want 0", repo.calls)
	}
}

func TestResolver_StoreErrorIsNotDenial(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("connection refused")
	r := NewResolver(repo, nil)
	ctx := context.Background()

	if _, err := r.HasSystemPermission(ctx, alice, catalog.SystemUsersView); !errors.Is(err, repo.err) {
		t.Errorf("HasSystemPermission err = %v, want wrapped store error", err)
	}
	if _, err := r.HasOrgPermission(ctx, alice, orgA, catalog.OrgNewsView); !errors.Is(err, repo.err) {
		t.Errorf("HasOrgPermission err = %v, want wrapped store error", err)
	}
	if _, err := r.GetUserOrgPermissions(ctx, alice, orgA); err == nil {
		t.Error("GetUserOrgPermissions should fail")
	}
	if _, err := r.OrgGrants(ctx, alice, orgA); err == nil {
		t.Error("OrgGrants should fail")
	}
}

func TestResolver_RevocationTakesEffectImmediately(t *testing.T) {
	repo := newMemRepo()
	repo.customGroups["desk"] = customGroup{org: orgA, codes: []string{catalog.OrgServiceView}}
	repo.customMembers[alice] = []string{"desk"}
	r := NewResolver(repo, nil)
	ctx := context.Background()

	if ok, _ := r.HasOrgPermission(ctx, alice, orgA, catalog.OrgServiceView); !ok {
		t.Fatal("expected grant before revocation")
	}
	repo.mu.Lock()
	delete(repo.customMembers, alice)
	repo.mu.Unlock()
	if ok, _ := r.HasOrgPermission(ctx, alice, orgA, catalog.OrgServiceView); ok {
		t.Error("grant survived revocation")
	}
}

func TestOrgGrants(t *testing.T) {
	repo := newMemRepo()
	repo.templateGroups["editors"] = []string{catalog.OrgNewsEdit, catalog.OrgNewsCreate}
	repo.templateMappings = append(repo.templateMappings, templateMapping{alice, "editors", orgA})
	repo.customGroups["desk"] = customGroup{org: orgA, codes: []string{catalog.OrgServiceView}}
	repo.customMembers[alice] = []string{"desk"}
	r := NewResolver(repo, nil)

	grants, err := r.OrgGrants(context.Background(), alice, orgA)
	if err != nil {
		t.Fatalf("OrgGrants: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("len(grants) = %d, want 2", len(grants))
	}
	tg, ok := grants[0].(domain.TemplateGrant)
	if !ok {
		t.Fatalf("grants[0] is %T, want TemplateGrant", grants[0])
	}
	if tg.OrganizationID != orgA || !reflect.DeepEqual(tg.Codes, []string{catalog.OrgNewsCreate, catalog.OrgNewsEdit}) {
		t.Errorf("template grant = %+v", tg)
	}
	if _, ok := grants[1].(domain.CustomGrant); !ok {
		t.Errorf("grants[1] is %T, want CustomGrant", grants[1])
	}
}
