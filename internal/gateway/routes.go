package gateway

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"schoolrecords/internal/attendance"
	"schoolrecords/internal/gateway/handlers"
	"schoolrecords/internal/grades"
	"schoolrecords/internal/reports"
	"schoolrecords/internal/semester"
	"schoolrecords/internal/shared"
)

// Services bundles the record-engine services the router dispatches to.
type Services struct {
	Grades     *grades.Service
	Semesters  *semester.Service
	Attendance *attendance.Service
	Reports    *reports.Service
}

// SetupRoutes configures the Chi router, middleware, and route handlers.
func SetupRoutes(cfg *shared.AppConfig, services *Services) *chi.Mux {
	r := chi.NewRouter()

	// 1. Global Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	// 2. Initialize Handlers
	validate := validator.New()
	gradeHandler := &handlers.GradeHandler{Grades: services.Grades, Validate: validate}
	semesterHandler := &handlers.SemesterHandler{Semesters: services.Semesters, Validate: validate}
	attendanceHandler := &handlers.AttendanceHandler{Attendance: services.Attendance, Validate: validate}
	reportHandler := &handlers.ReportHandler{Reports: services.Reports}

	// 3. Define Routes (identity is resolved by the external auth
	// service; every route only needs a verified token)
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Security.JWTSecret))

		// Grade Management
		r.Route("/grades", func(r chi.Router) {
			// Teacher
			r.Post("/", gradeHandler.UpsertGrade)
			r.Post("/bulk", gradeHandler.BulkUpsertGrades)
			r.Patch("/field", gradeHandler.SetGradeField)
			r.Get("/subject/{subject_id}", gradeHandler.GetSubjectGrades)
			r.Get("/section-averages", gradeHandler.GetSectionAverages)
			r.Get("/subject-performance", gradeHandler.GetSubjectPerformance)

			// Student (own records) / Teacher / Admin
			r.Get("/student/{student_id}", gradeHandler.GetStudentGrades)
		})

		// Semester Management (Admin)
		r.Route("/semesters", func(r chi.Router) {
			r.Post("/", semesterHandler.CreateSemester)
			r.Get("/", semesterHandler.ListSemesters)
			r.Post("/{id}/end", semesterHandler.EndSemester)
		})

		// Attendance Management (Teacher)
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/", attendanceHandler.SaveAttendance)
			r.Get("/", attendanceHandler.GetAttendance)
			r.Get("/weekly-summary", attendanceHandler.GetWeeklySummary)
		})

		// Reports
		r.Get("/reports/form137/{student_id}", reportHandler.GetGradeHistory)
	})

	return r
}
