package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmaulana/school-notify-api/internal/models"
	"github.com/rmaulana/school-notify-api/internal/service"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

type fakeStudentRepo struct {
	created []*models.Student
	pairs   int
	all     []models.StudentDetail
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	student.ID = int64(len(f.created) + 1)
	f.created = append(f.created, student)
	return nil
}

func (f *fakeStudentRepo) CreateWithParent(ctx context.Context, parent *models.User, student *models.Student) error {
	parent.ID = "parent-new"
	student.ID = 100
	student.ParentID = parent.ID
	f.pairs++
	return nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) Update(ctx context.Context, id int64, name, grade string) (int64, error) {
	return 0, nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

func (f *fakeStudentRepo) ListAll(ctx context.Context) ([]models.StudentDetail, error) {
	return f.all, nil
}

func (f *fakeStudentRepo) Search(ctx context.Context, filter models.StudentSearchFilter) ([]models.StudentDetail, error) {
	return nil, nil
}

func newStudentHandler(users *fakeUserRepo, students *fakeStudentRepo) *StudentHandler {
	directory := service.NewDirectoryService(users, students, nil, nil)
	dashboards := service.NewDashboardService(nil, nil, nil, nil, service.DashboardServiceConfig{})
	return NewStudentHandler(directory, dashboards)
}

func TestStudentHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	students := &fakeStudentRepo{}
	h := newStudentHandler(&fakeUserRepo{byEmail: map[string]*models.User{}}, students)

	body, _ := json.Marshal(map[string]string{
		"parent_full_name": "Mohammed Ahmed",
		"email":            "parent1@gmail.com",
		"password":         "Parent@123",
		"student_name":     "Ali Ahmed",
		"grade":            "Grade 1",
	})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students/register", bytes.NewReader(body))
	setClaims(c, "office-1", models.RoleOffice, "Fatima Ali")

	h.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, students.pairs)
}

func TestStudentHandlerRegisterDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	users := &fakeUserRepo{byEmail: map[string]*models.User{
		"parent1@gmail.com": {ID: "parent-1", Role: models.RoleParent},
	}}
	h := newStudentHandler(users, &fakeStudentRepo{})

	body, _ := json.Marshal(map[string]string{
		"parent_full_name": "Mohammed Ahmed",
		"email":            "parent1@gmail.com",
		"password":         "Parent@123",
		"student_name":     "Ali Ahmed",
		"grade":            "Grade 1",
	})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students/register", bytes.NewReader(body))
	setClaims(c, "office-1", models.RoleOffice, "Fatima Ali")

	h.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStudentHandlerRegisterForbiddenForTeacher(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newStudentHandler(&fakeUserRepo{byEmail: map[string]*models.User{}}, &fakeStudentRepo{})

	body, _ := json.Marshal(map[string]string{
		"parent_full_name": "Mohammed Ahmed",
		"email":            "parent1@gmail.com",
		"password":         "Parent@123",
		"student_name":     "Ali Ahmed",
		"grade":            "Grade 1",
	})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students/register", bytes.NewReader(body))
	setClaims(c, "teacher-1", models.RoleTeacher, "Ahmed Hassan")

	h.Register(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStudentHandlerGetBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newStudentHandler(&fakeUserRepo{}, &fakeStudentRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	setClaims(c, "office-1", models.RoleOffice, "Fatima Ali")

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	students := &fakeStudentRepo{all: []models.StudentDetail{
		{Student: models.Student{ID: 1, Name: "Ali Ahmed", Grade: "Grade 1"}, ParentName: "Mohammed Ahmed", ParentEmail: "parent1@gmail.com"},
	}}
	h := newStudentHandler(&fakeUserRepo{}, students)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/export?format=csv", nil)
	setClaims(c, "office-1", models.RoleOffice, "Fatima Ali")

	h.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.True(t, strings.Contains(rec.Header().Get("Content-Disposition"), "roster.csv"))
	assert.True(t, strings.Contains(rec.Body.String(), "Ali Ahmed"))
}

func TestStudentHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	students := &fakeStudentRepo{all: []models.StudentDetail{
		{Student: models.Student{ID: 1, Name: "Ali Ahmed", Grade: "Grade 1"}},
		{Student: models.Student{ID: 2, Name: "Sara Mohammed", Grade: "Grade 2"}},
	}}
	h := newStudentHandler(&fakeUserRepo{}, students)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students", nil)
	setClaims(c, "office-1", models.RoleOffice, "Fatima Ali")

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data struct {
			TotalStudents int `json:"total_students"`
			TotalGrades   int `json:"total_grades"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.TotalStudents)
	assert.Equal(t, 2, envelope.Data.TotalGrades)
}
