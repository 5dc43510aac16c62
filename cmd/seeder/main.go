package main

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"schoolrecords/internal/shared"
)

// Fixed IDs so the seeded data is easy to reference from API calls and tests
const (
	// User IDs
	AdminID1   = "admin-001"
	TeacherID1 = "teacher-001" // Adviser of St. Augustine
	TeacherID2 = "teacher-002" // Adviser of St. Benedict
	StudentID1 = "student-001" // Juan Dela Cruz
	StudentID2 = "student-002" // Maria Santos
	StudentID3 = "student-003" // Pedro Reyes

	// Common Credentials
	CommonPassword = "password"

	// Reference IDs
	StrandSTEM = "strand-stem"
	StrandABM  = "strand-abm"
	Grade11ID  = "yl-grade11"
	Grade12ID  = "yl-grade12"
	Section1ID = "section-augustine"
	Section2ID = "section-benedict"

	// Current Academic Period
	CurrentSemesterID  = "sem-2025-1st"
	PreviousSemesterID = "sem-2024-2nd"
	CurrentSchoolYear  = "2025-2026"
)

// SubjectSeed describes one subject offering for easy seeding
type SubjectSeed struct {
	ID          string
	Name        string
	StrandID    string
	YearLevelID string
	Semester    string
}

func main() {
	log.Println("Starting Database Seeder...")

	if err := shared.LoadEnv(".env"); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := shared.LoadAppConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer shared.DisconnectMongoDB(client)

	// Drop all collections to ensure a clean start
	if err := db.Drop(context.Background()); err != nil {
		log.Fatalf("Failed to drop database: %v", err)
	}
	log.Println("Database cleared successfully.")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := shared.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	// --- 1. Seed Reference Data ---
	seedStrands(ctx, db)
	seedYearLevels(ctx, db)
	seedSections(ctx, db)

	// --- 2. Seed Subjects ---
	subjectSeeds := []SubjectSeed{
		{"subj-gen-math", "General Mathematics", StrandSTEM, Grade11ID, shared.SemesterFirst},
		{"subj-earth-sci", "Earth Science", StrandSTEM, Grade11ID, shared.SemesterFirst},
		{"subj-oral-comm", "Oral Communication", StrandSTEM, Grade11ID, shared.SemesterFirst},
		{"subj-pre-calc", "Pre-Calculus", StrandSTEM, Grade11ID, shared.SemesterSecond},
		{"subj-bus-math", "Business Mathematics", StrandABM, Grade11ID, shared.SemesterFirst},
	}
	seedSubjects(ctx, db, subjectSeeds)

	// --- 3. Seed Users ---
	seedUsers(ctx, db)

	// --- 4. Seed Semesters ---
	seedSemesters(ctx, db)

	log.Println("All data seeding completed successfully.")
}

// ============================================================================
// SEEDING FUNCTIONS
// ============================================================================

func seedStrands(ctx context.Context, db *mongo.Database) {
	log.Println("--- Seeding Strands ---")
	strandsCol := db.Collection(shared.ColStrands)

	strands := []shared.Strand{
		{ID: StrandSTEM, Name: "STEM", Description: "Science, Technology, Engineering, and Mathematics"},
		{ID: StrandABM, Name: "ABM", Description: "Accountancy, Business, and Management"},
	}

	for _, s := range strands {
		if err := upsertByID(ctx, strandsCol, s.ID, s); err != nil {
			log.Fatalf("Error seeding strand %s: %v", s.Name, err)
		}
		log.Printf("Seeded Strand: %s", s.Name)
	}
}

func seedYearLevels(ctx context.Context, db *mongo.Database) {
	log.Println("--- Seeding Year Levels ---")
	yearLevelsCol := db.Collection(shared.ColYearLevels)

	yearLevels := []shared.YearLevel{
		{ID: Grade11ID, Name: "Grade 11"},
		{ID: Grade12ID, Name: "Grade 12"},
	}

	for _, y := range yearLevels {
		if err := upsertByID(ctx, yearLevelsCol, y.ID, y); err != nil {
			log.Fatalf("Error seeding year level %s: %v", y.Name, err)
		}
		log.Printf("Seeded Year Level: %s", y.Name)
	}
}

func seedSections(ctx context.Context, db *mongo.Database) {
	log.Println("--- Seeding Sections ---")
	sectionsCol := db.Collection(shared.ColSections)

	sections := []shared.Section{
		{ID: Section1ID, Name: "St. Augustine", AdviserID: TeacherID1, YearLevelID: Grade11ID, StrandID: StrandSTEM},
		{ID: Section2ID, Name: "St. Benedict", AdviserID: TeacherID2, YearLevelID: Grade11ID, StrandID: StrandABM},
	}

	for _, s := range sections {
		if err := upsertByID(ctx, sectionsCol, s.ID, s); err != nil {
			log.Fatalf("Error seeding section %s: %v", s.Name, err)
		}
		log.Printf("Seeded Section: %s (Adviser: %s)", s.Name, s.AdviserID)
	}
}

func seedSubjects(ctx context.Context, db *mongo.Database, seeds []SubjectSeed) {
	log.Println("--- Seeding Subjects ---")
	subjectsCol := db.Collection(shared.ColSubjects)

	for _, s := range seeds {
		subject := shared.Subject{
			ID:           s.ID,
			Name:         s.Name,
			StrandID:     s.StrandID,
			YearLevelID:  s.YearLevelID,
			SemesterName: s.Semester,
		}

		if err := upsertByID(ctx, subjectsCol, subject.ID, subject); err != nil {
			log.Fatalf("Error seeding subject %s: %v", s.Name, err)
		}
		log.Printf("Seeded Subject: %s (%s)", s.Name, s.ID)
	}
}

func seedUsers(ctx context.Context, db *mongo.Database) {
	log.Println("--- Seeding Users ---")
	usersCol := db.Collection(shared.ColUsers)
	now := time.Now()

	users := []shared.User{
		{ID: AdminID1, Name: "Registrar Admin", Email: "admin@example.com", Role: shared.RoleAdmin, CreatedAt: now},
		{ID: TeacherID1, Name: "Ms. Liza Navarro", Email: "teacher@example.com", Role: shared.RoleTeacher, CreatedAt: now},
		{ID: TeacherID2, Name: "Mr. Ramon Villanueva", Email: "teacher2@example.com", Role: shared.RoleTeacher, CreatedAt: now},
		{ID: StudentID1, Name: "Juan Dela Cruz", Email: "student@example.com", Role: shared.RoleStudent, CreatedAt: now,
			StudentNumber: "202500001", YearLevelID: Grade11ID, SectionID: Section1ID, StrandID: StrandSTEM, Status: shared.StatusActive},
		{ID: StudentID2, Name: "Maria Santos", Email: "student2@example.com", Role: shared.RoleStudent, CreatedAt: now,
			StudentNumber: "202500002", YearLevelID: Grade11ID, SectionID: Section1ID, StrandID: StrandSTEM, Status: shared.StatusActive},
		{ID: StudentID3, Name: "Pedro Reyes", Email: "student3@example.com", Role: shared.RoleStudent, CreatedAt: now,
			StudentNumber: "202500003", YearLevelID: Grade11ID, SectionID: Section2ID, StrandID: StrandABM, Status: shared.StatusActive},
	}

	hashedBytes, _ := bcrypt.GenerateFromPassword([]byte(CommonPassword), 10)
	hashedPassword := string(hashedBytes)

	for _, u := range users {
		u.PasswordHash = hashedPassword
		filter := bson.M{"email": u.Email}
		update := bson.M{"$set": u}
		opts := options.Update().SetUpsert(true)

		_, err := usersCol.UpdateOne(ctx, filter, update, opts)
		if err != nil {
			log.Fatalf("Error seeding user %s: %v", u.Email, err)
		}
		log.Printf("Seeded %s: %s", u.Role, u.Email)
	}
}

func seedSemesters(ctx context.Context, db *mongo.Database) {
	log.Println("--- Seeding Semesters ---")
	semestersCol := db.Collection(shared.ColSemesters)
	now := time.Now()

	semesters := []shared.Semester{
		{
			ID:          PreviousSemesterID,
			Name:        shared.SemesterSecond,
			StrandID:    StrandSTEM,
			YearLevelID: Grade11ID,
			StartDate:   time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC),
			Status:      shared.StatusPending,
			CreatedAt:   now,
		},
		{
			ID:          CurrentSemesterID,
			Name:        shared.SemesterFirst,
			StrandID:    StrandSTEM,
			YearLevelID: Grade11ID,
			StartDate:   time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC),
			Status:      shared.StatusActive,
			CreatedAt:   now,
		},
	}

	for _, s := range semesters {
		if err := upsertByID(ctx, semestersCol, s.ID, s); err != nil {
			log.Fatalf("Error seeding semester %s: %v", s.ID, err)
		}
		log.Printf("Seeded Semester: %s (%s, Status: %s)", s.Name, s.ID, s.Status)
	}
}

func upsertByID(ctx context.Context, col *mongo.Collection, id string, doc interface{}) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	_, err := col.UpdateOne(ctx, filter, update, opts)
	return err
}
