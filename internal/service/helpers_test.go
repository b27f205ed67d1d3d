package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"requestflow/internal/database"
	"requestflow/internal/model"
	"requestflow/internal/repository"
	"requestflow/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(gormlogger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(e model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ofType(eventType string) []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// flakyStorage fails uploads into one library while failing is set.
type flakyStorage struct {
	storage.DocumentStorage
	mu      sync.Mutex
	library string
	failing bool
}

func (f *flakyStorage) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *flakyStorage) Upload(ctx context.Context, library, fileName string, content []byte, overwrite bool) (*storage.StoredFile, error) {
	f.mu.Lock()
	failing := f.failing && library == f.library
	f.mu.Unlock()
	if failing {
		return nil, errors.New("storage unavailable")
	}
	return f.DocumentStorage.Upload(ctx, library, fileName, content, overwrite)
}

type testEnv struct {
	db      *gorm.DB
	events  *recordingPublisher
	storage *flakyStorage
	tx      repository.TransactionManager

	users       repository.UserRepository
	departments repository.DepartmentRepository
	teams       repository.TeamRepository
	rosterRepo  repository.RosterRepository
	auditRepo   repository.AuditRepository

	purchaseApprovals   repository.ApprovalRepository
	purchaseAttachments repository.AttachmentRepository
	travelApprovals     repository.ApprovalRepository

	purchaseFlow WorkflowService
	travelFlow   WorkflowService
	submissions  *SubmissionCoordinator
	purchase     PurchaseService
	travel       TravelService
	discussions  DiscussionService
	rosters      RosterService
	directory    DirectoryService
	dashboard    DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	logger := zap.NewNop()

	e := &testEnv{
		db:     db,
		events: &recordingPublisher{},
		storage: &flakyStorage{
			DocumentStorage: storage.NewLocalDocumentStorage(t.TempDir(), logger),
			library:         model.DomainPurchase.AttachmentLibrary(),
		},
		tx:          repository.NewTransactionManager(db),
		users:       repository.NewUserRepository(db),
		departments: repository.NewDepartmentRepository(db),
		teams:       repository.NewTeamRepository(db),
		rosterRepo:  repository.NewRosterRepository(db),
		auditRepo:   repository.NewAuditRepository(db),
	}
	e.purchaseApprovals = repository.NewApprovalRepository(db, model.DomainPurchase)
	e.purchaseAttachments = repository.NewAttachmentRepository(db, model.DomainPurchase)
	e.travelApprovals = repository.NewApprovalRepository(db, model.DomainTravel)

	purchaseStates := repository.NewRequestStateRepository(db, model.DomainPurchase)
	travelStates := repository.NewRequestStateRepository(db, model.DomainTravel)

	e.purchaseFlow = NewWorkflowService(model.DomainPurchase, e.purchaseApprovals, purchaseStates, e.users, e.auditRepo, e.tx, e.events, logger)
	e.travelFlow = NewWorkflowService(model.DomainTravel, e.travelApprovals, travelStates, e.users, e.auditRepo, e.tx, e.events, logger)
	e.submissions = NewSubmissionCoordinator(repository.NewSubmissionRunRepository(db), e.storage, e.tx, e.events, logger)

	deps := RequestServiceDeps{
		Submissions: e.submissions,
		Rosters:     e.rosterRepo,
		Departments: e.departments,
		Teams:       e.teams,
		Users:       e.users,
		Audit:       e.auditRepo,
		Storage:     e.storage,
		Tx:          e.tx,
		Logger:      logger,
	}
	purchaseDeps := deps
	purchaseDeps.Workflow = e.purchaseFlow
	purchaseDeps.Attachments = e.purchaseAttachments
	e.purchase = NewPurchaseService(repository.NewPurchaseRequestRepository(db), purchaseDeps)

	travelDeps := deps
	travelDeps.Workflow = e.travelFlow
	travelDeps.Attachments = repository.NewAttachmentRepository(db, model.DomainTravel)
	e.travel = NewTravelService(repository.NewTravelRequestRepository(db), travelDeps)

	purchaseDiscussions := repository.NewDiscussionRepository(db, model.DomainPurchase)
	travelDiscussions := repository.NewDiscussionRepository(db, model.DomainTravel)
	e.discussions = NewDiscussionService([]DiscussionScope{
		{Domain: model.DomainPurchase, Discussions: purchaseDiscussions, Requests: purchaseStates},
		{Domain: model.DomainTravel, Discussions: travelDiscussions, Requests: travelStates},
	}, e.users, e.auditRepo, e.tx, e.events, logger)

	e.rosters = NewRosterService(e.rosterRepo, e.departments, e.teams, e.users, e.auditRepo, e.tx, logger)
	e.directory = NewDirectoryService(e.departments, e.teams, e.users)
	e.dashboard = NewDashboardService(
		DashboardScope{Domain: model.DomainPurchase, Requests: purchaseStates, Discussions: purchaseDiscussions, Workflow: e.purchaseFlow},
		DashboardScope{Domain: model.DomainTravel, Requests: travelStates, Discussions: travelDiscussions, Workflow: e.travelFlow},
	)
	return e
}

func (e *testEnv) createUser(t *testing.T, username, role string) *model.User {
	t.Helper()
	u := &model.User{
		Username:    username,
		DisplayName: username,
		Email:       fmt.Sprintf("%s@example.com", username),
		Password:    "not-a-hash",
		Role:        role,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) createDepartment(t *testing.T, name string) *model.Department {
	t.Helper()
	d := &model.Department{Name: name}
	require.NoError(t, e.departments.Create(context.Background(), d))
	return d
}

func (e *testEnv) createTeam(t *testing.T, name string, members ...uint) *model.Team {
	t.Helper()
	ctx := context.Background()
	team := &model.Team{Name: name}
	require.NoError(t, e.teams.Create(ctx, team))
	for _, m := range members {
		require.NoError(t, e.teams.AssignMember(ctx, team.ID, m))
	}
	return team
}

func (e *testEnv) addRoster(t *testing.T, scope string, scopeID, approverID uint, hierarchy int) *model.RosterEntry {
	t.Helper()
	entry := &model.RosterEntry{
		Scope:      scope,
		ScopeID:    scopeID,
		ApproverID: approverID,
		Role:       fmt.Sprintf("Level %d", hierarchy),
		Hierarchy:  hierarchy,
	}
	require.NoError(t, e.rosterRepo.Create(context.Background(), entry))
	return entry
}

func purchaseInput(deptID uint, submit bool) PurchaseRequestInput {
	return PurchaseRequestInput{
		Title:         "Laptops",
		DepartmentID:  deptID,
		Vendor:        "Acme",
		Category:      model.PurchaseCategoryGoods,
		Quantity:      3,
		UnitCost:      decimal.RequireFromString("12.50"),
		Justification: "new hires",
		Submit:        submit,
	}
}

// twoStepFixture is a department with roster [{1, A}, {2, B}] and a requester.
type twoStepFixture struct {
	requester, a, b *model.User
	dept            *model.Department
}

func (e *testEnv) twoStep(t *testing.T) twoStepFixture {
	t.Helper()
	f := twoStepFixture{
		requester: e.createUser(t, "requester", model.RoleStaff),
		a:         e.createUser(t, "approver-a", model.RoleManager),
		b:         e.createUser(t, "approver-b", model.RoleManager),
		dept:      e.createDepartment(t, "Engineering"),
	}
	e.addRoster(t, model.RosterScopeDepartment, f.dept.ID, f.a.ID, 1)
	e.addRoster(t, model.RosterScopeDepartment, f.dept.ID, f.b.ID, 2)
	return f
}

func (e *testEnv) submitPurchase(t *testing.T, f twoStepFixture) *PurchaseRequestResponse {
	t.Helper()
	res, err := e.purchase.Create(context.Background(), Actor{UserID: f.requester.ID, Role: model.RoleStaff}, purchaseInput(f.dept.ID, true), nil)
	require.NoError(t, err)
	require.Len(t, res.Approvals, 2)
	return res
}
