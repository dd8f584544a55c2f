package repository

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	userID  = "6f1c5a8e-2b7d-4c1e-9a35-0d2f8e4b7c10"
	orgID   = "0b8e7f6a-5d4c-4b3a-8e2f-1a0b9c8d7e6f"
	groupID = "9d2a4c6e-8f10-4b32-a547-698badcfe012"
	permID  = "1e3c5a7b-9d1f-4e2a-b3c4-d5e6f7a8b9c0"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostgresRepository_HasSystemCode(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM system_user_permission_groups ug JOIN system_permission_group_permissions gp").
		WithArgs(userID, "system.users.view").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewPostgresRepository(db).HasSystemCode(context.Background(), userID, "system.users.view")
	if err != nil {
		t.Fatalf("HasSystemCode: %v", err)
	}
	if !ok {
		t.Error("HasSystemCode = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_OrgBranchesFilterOnDifferentColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("FROM org_user_group_members m .* WHERE m.user_id = \\$1 AND m.organization_id = \\$2 AND p.code = \\$3").
		WithArgs(userID, orgID, "org.news.edit").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("FROM org_custom_group_members m JOIN org_custom_groups g .* WHERE m.user_id = \\$1 AND g.organization_id = \\$2 AND p.code = \\$3").
		WithArgs(userID, orgID, "org.news.edit").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	tmpl, err := repo.HasTemplateOrgCode(ctx, userID, orgID, "org.news.edit")
	if err != nil || tmpl {
		t.Fatalf("HasTemplateOrgCode = %v, %v; want false, nil", tmpl, err)
	}
	custom, err := repo.HasCustomOrgCode(ctx, userID, orgID, "org.news.edit")
	if err != nil || !custom {
		t.Fatalf("HasCustomOrgCode = %v, %v; want true, nil", custom, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_MalformedIDsSkipQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	if ok, err := repo.HasSystemCode(ctx, "not-a-uuid", "system.superadmin"); ok || err != nil {
		t.Errorf("HasSystemCode = %v, %v; want false, nil", ok, err)
	}
	if ok, err := repo.HasCustomOrgCode(ctx, userID, "org-1", "org.news.view"); ok || err != nil {
		t.Errorf("HasCustomOrgCode = %v, %v; want false, nil", ok, err)
	}
	if codes, err := repo.ListTemplateOrgCodes(ctx, "x", orgID); codes != nil || err != nil {
		t.Errorf("ListTemplateOrgCodes = %v, %v; want nil, nil", codes, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}

func TestPostgresRepository_HasSystemCodeError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT EXISTS").WillReturnError(sql.ErrConnDone)

	_, err := NewPostgresRepository(db).HasSystemCode(context.Background(), userID, "system.audit.view")
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("err = %v, want ErrConnDone", err)
	}
}

func TestPostgresRepository_ListSystemCodes(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT DISTINCT p.code FROM system_user_permission_groups").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("system.groups.view").AddRow("system.users.view"))

	codes, err := NewPostgresRepository(db).ListSystemCodes(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListSystemCodes: %v", err)
	}
	want := []string{"system.groups.view", "system.users.view"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("codes = %v, want %v", codes, want)
	}
}

func TestPostgresRepository_ListTemplateGrantsGroupsRows(t *testing.T) {
	db, mock := newMock(t)
	const other = "2a4c6e8f-1b3d-4f5a-8c7e-9b1d3f5a7c9e"
	mock.ExpectQuery("SELECT g.id, g.name, p.code FROM org_user_group_members m JOIN org_user_groups g").
		WithArgs(userID, orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "code"}).
			AddRow(groupID, "Editors", "org.news.create").
			AddRow(groupID, "Editors", "org.news.edit").
			AddRow(other, "Empty", nil))

	grants, err := NewPostgresRepository(db).ListTemplateGrants(context.Background(), userID, orgID)
	if err != nil {
		t.Fatalf("ListTemplateGrants: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("len(grants) = %d, want 2", len(grants))
	}
	if grants[0].OrganizationID != orgID || grants[0].GroupName != "Editors" ||
		!reflect.DeepEqual(grants[0].Codes, []string{"org.news.create", "org.news.edit"}) {
		t.Errorf("grants[0] = %+v", grants[0])
	}
	if grants[1].GroupID != other || len(grants[1].Codes) != 0 {
		t.Errorf("grants[1] = %+v, want empty group", grants[1])
	}
}

func TestPostgresRepository_ListCustomGrants(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM org_custom_group_members m JOIN org_custom_groups g ON g.id = m.group_id LEFT JOIN").
		WithArgs(userID, orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "code"}).
			AddRow(groupID, "Front desk", "org.service.view"))

	grants, err := NewPostgresRepository(db).ListCustomGrants(context.Background(), userID, orgID)
	if err != nil {
		t.Fatalf("ListCustomGrants: %v", err)
	}
	if len(grants) != 1 || grants[0].GroupName != "Front desk" || grants[0].Codes[0] != "org.service.view" {
		t.Errorf("grants = %+v", grants)
	}
}

func TestPostgresRepository_EnsurePermission(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO permissions .* ON CONFLICT \\(code\\) DO UPDATE SET description = EXCLUDED.description RETURNING id").
		WithArgs(sqlmock.AnyArg(), "org.news.publish", "Publish news items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(permID))

	id, err := NewPostgresRepository(db).EnsurePermission(context.Background(), "org.news.publish", "Publish news items")
	if err != nil {
		t.Fatalf("EnsurePermission: %v", err)
	}
	if id != permID {
		t.Errorf("id = %q, want existing row id", id)
	}
}

func TestPostgresRepository_GrantUnknownCode(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT id FROM permissions WHERE code = \\$1").
		WithArgs("org.newz.edit").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := NewPostgresRepository(db).GrantTemplateGroup(context.Background(), groupID, "org.newz.edit")
	if !errors.Is(err, ErrUnknownPermission) {
		t.Fatalf("err = %v, want ErrUnknownPermission", err)
	}
}

func TestPostgresRepository_GrantCustomGroup(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT id FROM permissions").
		WithArgs("org.service.edit").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(permID))
	mock.ExpectExec("INSERT INTO org_custom_group_permissions").
		WithArgs(groupID, permID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPostgresRepository(db).GrantCustomGroup(context.Background(), groupID, "org.service.edit"); err != nil {
		t.Fatalf("GrantCustomGroup: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_AddTemplateGroupMemberForeignKey(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO org_user_group_members \\(user_id, group_id, organization_id\\)").
		WithArgs(userID, groupID, orgID).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := NewPostgresRepository(db).AddTemplateGroupMember(context.Background(), userID, groupID, orgID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
