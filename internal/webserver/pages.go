package webserver

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pace-platform/pace-admin/internal/api"
	"github.com/pace-platform/pace-admin/internal/role"
	"github.com/pace-platform/pace-admin/internal/storage"
)

// universityScope is the university a page works on: an admin's own, or the
// one a super admin has selected (empty meaning all)
func (w *Webserver) universityScope(c echo.Context) string {
	v := currentVisit(c)
	sess := v.auth.Session()
	if sess.Role == role.Admin {
		return sess.UniversityID()
	}

	selected, _, err := storage.Lookup(c.Request().Context(), v.auth.Store(), storage.KeySelectedUniversity)
	if err != nil {
		c.Logger().Warnf("Couldn't read selected university: %v", err)
	}
	return selected
}

type adminDashboardView struct {
	Summary *api.AnalyticsSummary
	Pending []api.Student
}

func (w *Webserver) adminDashboardHandler(c echo.Context) error {
	ctx := c.Request().Context()
	v := currentVisit(c)
	universityID := w.universityScope(c)

	p := &pageView{Title: "Dashboard"}
	data := adminDashboardView{}

	summary, err := v.api.AnalyticsSummary(ctx, universityID)
	if err != nil {
		p.fail(err)
	}
	data.Summary = summary

	pending, err := v.api.ListStudents(ctx, api.StudentFilter{UniversityID: universityID, Status: api.StudentPending})
	if err != nil {
		p.fail(err)
	}
	data.Pending = pending

	p.Data = data
	return w.render(c, http.StatusOK, "admin_dashboard", p)
}

type coursesView struct {
	Courses []api.Course
}

func (w *Webserver) renderCourses(c echo.Context, p *pageView) error {
	courses, err := currentVisit(c).api.ListCourses(c.Request().Context(), w.universityScope(c))
	if err != nil {
		p.fail(err)
	}
	p.Title = "Courses"
	p.Data = coursesView{Courses: courses}
	return w.render(c, http.StatusOK, "courses", p)
}

func (w *Webserver) adminCoursesHandler(c echo.Context) error {
	return w.renderCourses(c, &pageView{})
}

func (w *Webserver) adminSaveCourseHandler(c echo.Context) error {
	p := &pageView{}
	_, err := currentVisit(c).api.SaveCourse(c.Request().Context(), api.Course{
		ID:           c.FormValue("id"),
		Code:         strings.TrimSpace(c.FormValue("code")),
		Name:         strings.TrimSpace(c.FormValue("name")),
		Description:  strings.TrimSpace(c.FormValue("description")),
		UniversityID: w.universityScope(c),
	})
	if err != nil {
		p.fail(err)
	} else {
		p.ok("Course saved")
	}
	return w.renderCourses(c, p)
}

func (w *Webserver) adminDeleteCourseHandler(c echo.Context) error {
	p := &pageView{}
	if err := currentVisit(c).api.DeleteCourse(c.Request().Context(), c.Param("id")); err != nil {
		p.fail(err)
	} else {
		p.ok("Course deleted")
	}
	return w.renderCourses(c, p)
}

type approvalView struct {
	Status   api.StudentStatus
	Statuses []api.StudentStatus
	Students []api.Student
}

func (w *Webserver) renderApprovals(c echo.Context, p *pageView) error {
	status := api.StudentStatus(strings.ToUpper(c.QueryParam("status")))
	if status == "" {
		status = api.StudentPending
	}

	students, err := currentVisit(c).api.ListStudents(c.Request().Context(), api.StudentFilter{
		UniversityID: w.universityScope(c),
		Status:       status,
	})
	if err != nil {
		p.fail(err)
	}

	p.Title = "User Approval"
	p.Data = approvalView{
		Status:   status,
		Statuses: []api.StudentStatus{api.StudentPending, api.StudentApproved, api.StudentRejected},
		Students: students,
	}
	return w.render(c, http.StatusOK, "user_approval", p)
}

func (w *Webserver) userApprovalHandler(c echo.Context) error {
	return w.renderApprovals(c, &pageView{})
}

func (w *Webserver) userDecisionHandler(c echo.Context) error {
	ctx := c.Request().Context()
	v := currentVisit(c)
	p := &pageView{}

	var err error
	switch c.Param("decision") {
	case "approve":
		if err = v.api.ApproveStudent(ctx, c.Param("id")); err == nil {
			p.ok("Student approved")
		}
	case "reject":
		if err = v.api.RejectStudent(ctx, c.Param("id")); err == nil {
			p.ok("Student rejected")
		}
	default:
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err != nil {
		p.fail(err)
	}
	return w.renderApprovals(c, p)
}

type recordsView struct {
	Records []api.Record
}

func (w *Webserver) renderRecords(c echo.Context, title string) error {
	p := &pageView{Title: title}
	records, err := currentVisit(c).api.ListRecords(c.Request().Context(), w.universityScope(c))
	if err != nil {
		p.fail(err)
	}
	p.Data = recordsView{Records: records}
	return w.render(c, http.StatusOK, "records", p)
}

func (w *Webserver) adminReportsHandler(c echo.Context) error {
	return w.renderRecords(c, "Reports")
}

type analyticsView struct {
	Summary *api.AnalyticsSummary
	Careers []api.CareerShare
}

// analyticsHandler serves both subtrees; the university scope differs
func (w *Webserver) analyticsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	v := currentVisit(c)
	universityID := w.universityScope(c)
	p := &pageView{Title: "Analytics"}

	summary, err := v.api.AnalyticsSummary(ctx, universityID)
	if err != nil {
		p.fail(err)
	}
	careers, err := v.api.CareerDistribution(ctx, universityID)
	if err != nil {
		p.fail(err)
	}

	p.Data = analyticsView{Summary: summary, Careers: careers}
	return w.render(c, http.StatusOK, "analytics", p)
}

type customizationView struct {
	Settings *api.ThemeSettings
	Action   string
}

func (w *Webserver) renderCustomization(c echo.Context, p *pageView) error {
	settings, err := currentVisit(c).api.GetTheme(c.Request().Context(), w.universityScope(c))
	if err != nil {
		p.fail(err)
	}
	p.Title = "Customization"
	p.Data = customizationView{Settings: settings, Action: c.Request().URL.Path}
	return w.render(c, http.StatusOK, "customization", p)
}

func (w *Webserver) customizationHandler(c echo.Context) error {
	return w.renderCustomization(c, &pageView{})
}

// saveCustomizationHandler stores the university's theme and applies it to
// this browser straight away
func (w *Webserver) saveCustomizationHandler(c echo.Context) error {
	v := currentVisit(c)
	p := &pageView{}

	saved, err := v.api.SaveTheme(c.Request().Context(), api.ThemeSettings{
		UniversityID: w.universityScope(c),
		ThemeName:    strings.ToLower(strings.TrimSpace(c.FormValue("themeName"))),
		LogoURL:      strings.TrimSpace(c.FormValue("logoUrl")),
	})
	if err != nil {
		p.fail(err)
	} else {
		if err := v.workspace.Theme.SetThemeName(saved.ThemeName); err != nil {
			c.Logger().Warnf("Backend returned theme %q: %v", saved.ThemeName, err)
		}
		p.ok("Theme saved")
	}
	return w.renderCustomization(c, p)
}

func (w *Webserver) uploadLogoHandler(c echo.Context) error {
	ctx := c.Request().Context()
	v := currentVisit(c)
	p := &pageView{}

	data, filename, err := readUpload(c, "logo")
	if err != nil {
		p.fail(&api.ValidationError{Fields: map[string]string{"logo": "logo is required"}})
		return w.renderCustomization(c, p)
	}

	logoURL, err := v.api.UploadLogo(ctx, w.universityScope(c), filename, data)
	if err != nil {
		p.fail(err)
		return w.renderCustomization(c, p)
	}

	if err := v.auth.Store().Set(ctx, storage.KeyCustomLogo, logoURL); err != nil {
		c.Logger().Warnf("Couldn't remember custom logo: %v", err)
	}
	p.ok("Logo uploaded")
	return w.renderCustomization(c, p)
}

// readUpload reads at most one byte more than the API accepts so oversized
// files are still reported as too large
func readUpload(c echo.Context, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	f, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, api.MaxLogoSize+1))
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

type superDashboardView struct {
	Universities int
	Admins       int
	Summary      *api.AnalyticsSummary
}

func (w *Webserver) superDashboardHandler(c echo.Context) error {
	ctx := c.Request().Context()
	v := currentVisit(c)
	p := &pageView{Title: "Dashboard"}
	data := superDashboardView{}

	universities, err := v.api.ListUniversities(ctx)
	if err != nil {
		p.fail(err)
	}
	data.Universities = len(universities)

	admins, err := v.api.ListAdmins(ctx)
	if err != nil {
		p.fail(err)
	}
	data.Admins = len(admins)

	data.Summary, err = v.api.AnalyticsSummary(ctx, w.universityScope(c))
	if err != nil {
		p.fail(err)
	}

	p.Data = data
	return w.render(c, http.StatusOK, "super_dashboard", p)
}

type universitiesView struct {
	Universities []api.University
	Selected     string
}

func (w *Webserver) renderUniversities(c echo.Context, p *pageView) error {
	universities, err := currentVisit(c).api.ListUniversities(c.Request().Context())
	if err != nil {
		p.fail(err)
	}
	p.Title = "University"
	p.Data = universitiesView{Universities: universities, Selected: w.universityScope(c)}
	return w.render(c, http.StatusOK, "universities", p)
}

func (w *Webserver) universitiesHandler(c echo.Context) error {
	return w.renderUniversities(c, &pageView{})
}

func (w *Webserver) saveUniversityHandler(c echo.Context) error {
	p := &pageView{}
	_, err := currentVisit(c).api.SaveUniversity(c.Request().Context(), api.University{
		ID:      c.FormValue("id"),
		Name:    strings.TrimSpace(c.FormValue("name")),
		Acronym: strings.TrimSpace(c.FormValue("acronym")),
		Address: strings.TrimSpace(c.FormValue("address")),
	})
	if err != nil {
		p.fail(err)
	} else {
		p.ok("University saved")
	}
	return w.renderUniversities(c, p)
}

func (w *Webserver) deleteUniversityHandler(c echo.Context) error {
	ctx := c.Request().Context()
	v := currentVisit(c)
	p := &pageView{}

	id := c.Param("id")
	if err := v.api.DeleteUniversity(ctx, id); err != nil {
		p.fail(err)
		return w.renderUniversities(c, p)
	}

	if w.universityScope(c) == id {
		if err := v.auth.Store().Remove(ctx, storage.KeySelectedUniversity); err != nil {
			c.Logger().Warnf("Couldn't clear selected university: %v", err)
		}
	}
	p.ok("University deleted")
	return w.renderUniversities(c, p)
}

// selectUniversityHandler scopes the super admin's records, analytics and
// customization pages to one university. An empty id clears the selection.
func (w *Webserver) selectUniversityHandler(c echo.Context) error {
	ctx := c.Request().Context()
	store := currentVisit(c).auth.Store()
	p := &pageView{}

	var err error
	if id := strings.TrimSpace(c.FormValue("universityId")); id != "" {
		err = store.Set(ctx, storage.KeySelectedUniversity, id)
	} else {
		err = store.Remove(ctx, storage.KeySelectedUniversity)
	}
	if err != nil {
		c.Logger().Errorf("Couldn't store selected university: %v", err)
		p.fail(err)
	}
	return w.renderUniversities(c, p)
}

type accountsView struct {
	Admins       []api.AdminAccount
	Universities []api.University
}

func (w *Webserver) renderAccounts(c echo.Context, p *pageView) error {
	ctx := c.Request().Context()
	v := currentVisit(c)

	admins, err := v.api.ListAdmins(ctx)
	if err != nil {
		p.fail(err)
	}
	universities, err := v.api.ListUniversities(ctx)
	if err != nil {
		p.fail(err)
	}

	p.Title = "Accounts"
	p.Data = accountsView{Admins: admins, Universities: universities}
	return w.render(c, http.StatusOK, "accounts", p)
}

func (w *Webserver) accountsHandler(c echo.Context) error {
	return w.renderAccounts(c, &pageView{})
}

func (w *Webserver) createAccountHandler(c echo.Context) error {
	p := &pageView{}
	_, err := currentVisit(c).api.CreateAdmin(c.Request().Context(), api.NewAdminAccount{
		Username:     strings.TrimSpace(c.FormValue("username")),
		Email:        strings.TrimSpace(c.FormValue("email")),
		Name:         strings.TrimSpace(c.FormValue("name")),
		Password:     c.FormValue("password"),
		UniversityID: c.FormValue("universityId"),
	})
	if err != nil {
		p.fail(err)
	} else {
		p.ok("Admin account created")
	}
	return w.renderAccounts(c, p)
}

func (w *Webserver) accountStatusHandler(c echo.Context) error {
	p := &pageView{}
	status := api.AccountStatus(strings.ToUpper(c.FormValue("status")))
	if err := currentVisit(c).api.SetAdminStatus(c.Request().Context(), c.Param("id"), status); err != nil {
		p.fail(err)
	} else {
		p.ok("Account status updated")
	}
	return w.renderAccounts(c, p)
}

func (w *Webserver) deleteAccountHandler(c echo.Context) error {
	p := &pageView{}
	if err := currentVisit(c).api.DeleteAdmin(c.Request().Context(), c.Param("id")); err != nil {
		p.fail(err)
	} else {
		p.ok("Admin account deleted")
	}
	return w.renderAccounts(c, p)
}

type questionsView struct {
	Questions []api.Question
	Careers   []api.Career
}

func (w *Webserver) renderQuestions(c echo.Context, p *pageView) error {
	ctx := c.Request().Context()
	v := currentVisit(c)

	questions, err := v.api.ListQuestions(ctx)
	if err != nil {
		p.fail(err)
	}
	careers, err := v.api.ListCareers(ctx)
	if err != nil {
		p.fail(err)
	}

	p.Title = "Questions"
	p.Data = questionsView{Questions: questions, Careers: careers}
	return w.render(c, http.StatusOK, "questions", p)
}

func (w *Webserver) questionsHandler(c echo.Context) error {
	return w.renderQuestions(c, &pageView{})
}

func (w *Webserver) saveQuestionHandler(c echo.Context) error {
	p := &pageView{}

	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form")
	}

	_, err = currentVisit(c).api.SaveQuestion(c.Request().Context(), api.Question{
		ID:        form.Get("id"),
		Statement: strings.TrimSpace(form.Get("statement")),
		Category:  strings.TrimSpace(form.Get("category")),
		CareerIDs: form["careerIds"],
		Active:    form.Get("active") != "",
	})
	if err != nil {
		p.fail(err)
	} else {
		p.ok("Question saved")
	}
	return w.renderQuestions(c, p)
}

func (w *Webserver) deleteQuestionHandler(c echo.Context) error {
	p := &pageView{}
	if err := currentVisit(c).api.DeleteQuestion(c.Request().Context(), c.Param("id")); err != nil {
		p.fail(err)
	} else {
		p.ok("Question deleted")
	}
	return w.renderQuestions(c, p)
}

func (w *Webserver) saveCareerHandler(c echo.Context) error {
	p := &pageView{}
	_, err := currentVisit(c).api.SaveCareer(c.Request().Context(), api.Career{
		ID:          c.FormValue("id"),
		Name:        strings.TrimSpace(c.FormValue("name")),
		Category:    strings.TrimSpace(c.FormValue("category")),
		Description: strings.TrimSpace(c.FormValue("description")),
	})
	if err != nil {
		p.fail(err)
	} else {
		p.ok("Career saved")
	}
	return w.renderQuestions(c, p)
}

func (w *Webserver) deleteCareerHandler(c echo.Context) error {
	p := &pageView{}
	if err := currentVisit(c).api.DeleteCareer(c.Request().Context(), c.Param("id")); err != nil {
		p.fail(err)
	} else {
		p.ok("Career deleted")
	}
	return w.renderQuestions(c, p)
}

func (w *Webserver) superRecordsHandler(c echo.Context) error {
	return w.renderRecords(c, "Records")
}
