package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/pace-platform/pace-admin/internal/apiclient"
)

// Client exposes one method per backend capability. Every method either
// returns its typed payload or an error that is an *apiclient.Error or a
// *ValidationError; failures are logged here and never swallowed.
type Client struct {
	http     *apiclient.Client
	logger   echo.Logger
	validate *validator.Validate
}

func New(hc *apiclient.Client, logger echo.Logger) *Client {
	if logger == nil {
		logger = log.New("api")
	}
	return &Client{http: hc, logger: logger, validate: newValidator()}
}

func (c *Client) call(ctx context.Context, r apiclient.Request, out any) error {
	err := c.http.Do(ctx, r, out)
	if err == nil {
		return nil
	}

	apiErr := apiclient.Normalize(r.Op, err)
	if errors.Is(err, context.Canceled) {
		c.logger.Debugf("%s: abandoned, browser went away", r.Op)
	} else {
		c.logger.Warnf("%s: %s %s -> status %d: %s (%v)", r.Op, r.Method, r.Path, apiErr.Status, apiErr.Message, apiErr.Cause)
	}
	return apiErr
}

func idPath(prefix, id string, rest ...string) string {
	p := prefix + "/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func universityQuery(universityID string) url.Values {
	if universityID == "" {
		return nil
	}
	return url.Values{"universityId": {universityID}}
}

func (c *Client) ListStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	if err := c.check(filter); err != nil {
		return nil, err
	}

	q := url.Values{}
	if filter.UniversityID != "" {
		q.Set("universityId", filter.UniversityID)
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}

	var students []Student
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch students",
		Method: http.MethodGet,
		Path:   "/api/admin/students",
		Query:  q,
	}, &students)
	return students, err
}

func (c *Client) ApproveStudent(ctx context.Context, id string) error {
	return c.decideStudent(ctx, "Approve student", id, "approve")
}

func (c *Client) RejectStudent(ctx context.Context, id string) error {
	return c.decideStudent(ctx, "Reject student", id, "reject")
}

func (c *Client) decideStudent(ctx context.Context, op, id, action string) error {
	if err := required("id", id); err != nil {
		return err
	}
	return c.call(ctx, apiclient.Request{
		Op:     op,
		Method: http.MethodPut,
		Path:   idPath("/api/admin/students", id, action),
	}, nil)
}

func (c *Client) ListCourses(ctx context.Context, universityID string) ([]Course, error) {
	var courses []Course
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch courses",
		Method: http.MethodGet,
		Path:   "/api/courses",
		Query:  universityQuery(universityID),
	}, &courses)
	return courses, err
}

// SaveCourse creates the course when it has no ID yet and updates it otherwise
func (c *Client) SaveCourse(ctx context.Context, course Course) (*Course, error) {
	if err := c.check(course); err != nil {
		return nil, err
	}

	r := apiclient.Request{Op: "Save course", Method: http.MethodPost, Path: "/api/courses", JSON: course}
	if course.ID != "" {
		r.Method, r.Path = http.MethodPut, idPath("/api/courses", course.ID)
	}

	saved := new(Course)
	if err := c.call(ctx, r, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	return c.call(ctx, apiclient.Request{
		Op:     "Delete course",
		Method: http.MethodDelete,
		Path:   idPath("/api/courses", id),
	}, nil)
}

func (c *Client) ListUniversities(ctx context.Context) ([]University, error) {
	var universities []University
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch universities",
		Method: http.MethodGet,
		Path:   "/api/universities",
	}, &universities)
	return universities, err
}

func (c *Client) SaveUniversity(ctx context.Context, u University) (*University, error) {
	if err := c.check(u); err != nil {
		return nil, err
	}

	r := apiclient.Request{Op: "Save university", Method: http.MethodPost, Path: "/api/universities", JSON: u}
	if u.ID != "" {
		r.Method, r.Path = http.MethodPut, idPath("/api/universities", u.ID)
	}

	saved := new(University)
	if err := c.call(ctx, r, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) DeleteUniversity(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	return c.call(ctx, apiclient.Request{
		Op:     "Delete university",
		Method: http.MethodDelete,
		Path:   idPath("/api/universities", id),
	}, nil)
}

func (c *Client) ListAdmins(ctx context.Context) ([]AdminAccount, error) {
	var admins []AdminAccount
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch admin accounts",
		Method: http.MethodGet,
		Path:   "/api/superadmin/admins",
	}, &admins)
	return admins, err
}

func (c *Client) CreateAdmin(ctx context.Context, a NewAdminAccount) (*AdminAccount, error) {
	if err := c.check(a); err != nil {
		return nil, err
	}

	created := new(AdminAccount)
	err := c.call(ctx, apiclient.Request{
		Op:     "Create admin account",
		Method: http.MethodPost,
		Path:   "/api/superadmin/admins",
		JSON:   a,
	}, created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (c *Client) SetAdminStatus(ctx context.Context, id string, status AccountStatus) error {
	if err := required("id", id); err != nil {
		return err
	}
	if status != AccountActive && status != AccountInactive {
		return &ValidationError{Fields: map[string]string{"status": "status must be one of: ACTIVE INACTIVE"}}
	}
	return c.call(ctx, apiclient.Request{
		Op:     "Update admin status",
		Method: http.MethodPut,
		Path:   idPath("/api/superadmin/admins", id, "status"),
		JSON:   map[string]AccountStatus{"status": status},
	}, nil)
}

func (c *Client) DeleteAdmin(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	return c.call(ctx, apiclient.Request{
		Op:     "Delete admin account",
		Method: http.MethodDelete,
		Path:   idPath("/api/superadmin/admins", id),
	}, nil)
}

func (c *Client) ListCareers(ctx context.Context) ([]Career, error) {
	var careers []Career
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch careers",
		Method: http.MethodGet,
		Path:   "/api/careers",
	}, &careers)
	return careers, err
}

func (c *Client) SaveCareer(ctx context.Context, career Career) (*Career, error) {
	if err := c.check(career); err != nil {
		return nil, err
	}

	r := apiclient.Request{Op: "Save career", Method: http.MethodPost, Path: "/api/careers", JSON: career}
	if career.ID != "" {
		r.Method, r.Path = http.MethodPut, idPath("/api/careers", career.ID)
	}

	saved := new(Career)
	if err := c.call(ctx, r, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) DeleteCareer(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	return c.call(ctx, apiclient.Request{
		Op:     "Delete career",
		Method: http.MethodDelete,
		Path:   idPath("/api/careers", id),
	}, nil)
}

func (c *Client) ListQuestions(ctx context.Context) ([]Question, error) {
	var questions []Question
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch questions",
		Method: http.MethodGet,
		Path:   "/api/questions",
	}, &questions)
	return questions, err
}

func (c *Client) SaveQuestion(ctx context.Context, q Question) (*Question, error) {
	if err := c.check(q); err != nil {
		return nil, err
	}

	r := apiclient.Request{Op: "Save question", Method: http.MethodPost, Path: "/api/questions", JSON: q}
	if q.ID != "" {
		r.Method, r.Path = http.MethodPut, idPath("/api/questions", q.ID)
	}

	saved := new(Question)
	if err := c.call(ctx, r, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) DeleteQuestion(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	return c.call(ctx, apiclient.Request{
		Op:     "Delete question",
		Method: http.MethodDelete,
		Path:   idPath("/api/questions", id),
	}, nil)
}

// AnalyticsSummary covers one university, or the whole platform when
// universityID is empty
func (c *Client) AnalyticsSummary(ctx context.Context, universityID string) (*AnalyticsSummary, error) {
	summary := new(AnalyticsSummary)
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch analytics",
		Method: http.MethodGet,
		Path:   "/api/analytics/summary",
		Query:  universityQuery(universityID),
	}, summary)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (c *Client) CareerDistribution(ctx context.Context, universityID string) ([]CareerShare, error) {
	var shares []CareerShare
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch career distribution",
		Method: http.MethodGet,
		Path:   "/api/analytics/careers",
		Query:  universityQuery(universityID),
	}, &shares)
	if err != nil {
		return nil, err
	}
	fillShares(shares)
	return shares, nil
}

func (c *Client) ListRecords(ctx context.Context, universityID string) ([]Record, error) {
	var records []Record
	err := c.call(ctx, apiclient.Request{
		Op:     "Fetch records",
		Method: http.MethodGet,
		Path:   "/api/records",
		Query:  universityQuery(universityID),
	}, &records)
	return records, err
}
