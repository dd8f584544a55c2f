package handler

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"govportal/backend/internal/permission/domain"
	"govportal/backend/internal/platform/rbac"
	"govportal/backend/internal/server/interceptors"
)

// fakeResolver keys grants by "user" for system scope and "user|org" for org scope.
type fakeResolver struct {
	grants map[string][]string
	lists  []domain.Grant
	err    error
}

func (f *fakeResolver) codes(key string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range f.grants[key] {
		out[c] = struct{}{}
	}
	return out
}

func (f *fakeResolver) HasSystemPermission(ctx context.Context, userID, code string) (bool, error) {
	_, ok := f.codes(userID)[code]
	return ok, f.err
}

func (f *fakeResolver) HasOrgPermission(ctx context.Context, userID, orgID, code string) (bool, error) {
	_, ok := f.codes(userID + "|" + orgID)[code]
	return ok, f.err
}

func (f *fakeResolver) GetUserSystemPermissions(ctx context.Context, userID string) (map[string]struct{}, error) {
	return f.codes(userID), f.err
}

func (f *fakeResolver) GetUserOrgPermissions(ctx context.Context, userID, orgID string) (map[string]struct{}, error) {
	return f.codes(userID + "|" + orgID), f.err
}

func (f *fakeResolver) OrgGrants(ctx context.Context, userID, orgID string) ([]domain.Grant, error) {
	return f.lists, f.err
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func codesOf(t *testing.T, resp any) []string {
	t.Helper()
	var out []string
	for _, v := range resp.(*structpb.Struct).GetFields()["codes"].GetListValue().GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out
}

func newFixture() *Server {
	return NewServer(&fakeResolver{grants: map[string][]string{
		"u1":      {"system.users.view", "system.audit.view"},
		"u1|org1": {"org.news.publish", "org.news.create"},
	}}, nil)
}

func TestListMyPermissions_System(t *testing.T) {
	ctx := interceptors.WithIdentity(context.Background(), "u1", "")
	resp, err := newFixture().ListMyPermissions(ctx, request(t, nil))
	if err != nil {
		t.Fatalf("ListMyPermissions: %v", err)
	}
	got := codesOf(t, resp)
	if len(got) != 2 || got[0] != "system.audit.view" || got[1] != "system.users.view" {
		t.Errorf("codes = %v, want sorted system codes", got)
	}
}

func TestListMyPermissions_OrgFromHeader(t *testing.T) {
	ctx := interceptors.WithIdentity(context.Background(), "u1", "org1")
	resp, err := newFixture().ListMyPermissions(ctx, request(t, nil))
	if err != nil {
		t.Fatalf("ListMyPermissions: %v", err)
	}
	if got := codesOf(t, resp); len(got) != 2 || got[0] != "org.news.create" {
		t.Errorf("codes = %v", got)
	}
}

func TestListMyPermissions_BodyOrgWins(t *testing.T) {
	ctx := interceptors.WithIdentity(context.Background(), "u1", "org1")
	resp, err := newFixture().ListMyPermissions(ctx, request(t, map[string]any{"organization_id": "org2"}))
	if err != nil {
		t.Fatalf("ListMyPermissions: %v", err)
	}
	if got := codesOf(t, resp); len(got) != 0 {
		t.Errorf("codes = %v, want none in org2", got)
	}
}

func TestListMyPermissions_Unauthenticated(t *testing.T) {
	_, err := newFixture().ListMyPermissions(context.Background(), request(t, nil))
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestCheckPermission(t *testing.T) {
	srv := newFixture()
	ctx := interceptors.WithIdentity(context.Background(), "u1", "")
	tests := []struct {
		name   string
		fields map[string]any
		want   bool
	}{
		{"system granted", map[string]any{"capability": "system.users.view"}, true},
		{"system denied", map[string]any{"capability": "system.users.edit"}, false},
		{"org granted", map[string]any{"capability": "org.news.publish", "organization_id": "org1"}, true},
		{"org code outside org", map[string]any{"capability": "org.news.publish", "organization_id": "org2"}, false},
		{"system code in org scope", map[string]any{"capability": "system.users.view", "organization_id": "org1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := srv.CheckPermission(ctx, request(t, tt.fields))
			if err != nil {
				t.Fatalf("CheckPermission: %v", err)
			}
			if got := resp.(*wrapperspb.BoolValue).GetValue(); got != tt.want {
				t.Errorf("granted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckPermission_MissingCapability(t *testing.T) {
	ctx := interceptors.WithIdentity(context.Background(), "u1", "")
	_, err := newFixture().CheckPermission(ctx, request(t, nil))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestCheckPermission_StoreErrorIsInternal(t *testing.T) {
	srv := NewServer(&fakeResolver{err: errors.New("conn reset")}, nil)
	ctx := interceptors.WithIdentity(context.Background(), "u1", "")
	_, err := srv.CheckPermission(ctx, request(t, map[string]any{"capability": "system.users.view"}))
	if status.Code(err) != codes.Internal {
		t.Errorf("code = %v, want Internal", status.Code(err))
	}
}

func TestGetUserPermissions(t *testing.T) {
	resp, err := newFixture().GetUserPermissions(context.Background(), request(t, map[string]any{"user_id": "u1", "organization_id": "org1"}))
	if err != nil {
		t.Fatalf("GetUserPermissions: %v", err)
	}
	if got := codesOf(t, resp); len(got) != 2 || got[1] != "org.news.publish" {
		t.Errorf("codes = %v", got)
	}
	if _, err := newFixture().GetUserPermissions(context.Background(), request(t, nil)); status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing user_id code = %v", status.Code(err))
	}
}

func TestListOrgGrants(t *testing.T) {
	srv := NewServer(&fakeResolver{lists: []domain.Grant{
		domain.TemplateGrant{OrganizationID: "org1", GroupID: "g1", GroupName: "Editors", Codes: []string{"org.news.create"}},
		domain.CustomGrant{GroupID: "g2", GroupName: "Publishers", Codes: []string{"org.news.publish"}},
	}}, nil)

	resp, err := srv.ListOrgGrants(context.Background(), request(t, map[string]any{"user_id": "u1", "organization_id": "org1"}))
	if err != nil {
		t.Fatalf("ListOrgGrants: %v", err)
	}
	grants := resp.(*structpb.Struct).GetFields()["grants"].GetListValue().GetValues()
	if len(grants) != 2 {
		t.Fatalf("grants = %d, want 2", len(grants))
	}
	first := grants[0].GetStructValue().GetFields()
	if first["kind"].GetStringValue() != "template" || first["organization_id"].GetStringValue() != "org1" {
		t.Errorf("first grant = %v", first)
	}
	second := grants[1].GetStructValue().GetFields()
	if second["kind"].GetStringValue() != "custom" || second["group_name"].GetStringValue() != "Publishers" {
		t.Errorf("second grant = %v", second)
	}
	if _, ok := second["organization_id"]; ok {
		t.Error("custom grant should not carry organization_id")
	}
}

func TestListOrgGrants_RequiresOrganization(t *testing.T) {
	_, err := newFixture().ListOrgGrants(context.Background(), request(t, map[string]any{"user_id": "u1"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestRules(t *testing.T) {
	rules := Rules()
	if r := rules["/govportal.access.v1.AccessService/GetUserPermissions"]; r != rbac.System("system.users.view") {
		t.Errorf("GetUserPermissions rule = %+v", r)
	}
	if r := rules["/govportal.access.v1.AccessService/ListOrgGrants"]; r != rbac.System("system.groups.view") {
		t.Errorf("ListOrgGrants rule = %+v", r)
	}
	if _, ok := rules["/govportal.access.v1.AccessService/CheckPermission"]; ok {
		t.Error("CheckPermission should not be guarded")
	}
}
