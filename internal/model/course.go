package model

// Course, Module and Lesson are authored by admin tooling and read-only here.

// swagger:model Course
type Course struct {
	BaseModel
	Title             string `gorm:"size:255;not null" json:"title"`
	Description       string `gorm:"type:text" json:"description"`
	InstructorID      uint   `gorm:"index" json:"instructorId"`
	CompletionMessage string `gorm:"type:text" json:"completionMessage,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Module
type Module struct {
	BaseModel
	CourseID             uint   `gorm:"not null;index:idx_module_course_order,unique" json:"courseId"`
	Title                string `gorm:"size:255" json:"title"`
	Order                int    `gorm:"column:sort_order;not null;index:idx_module_course_order,unique" json:"order"`
	HomeworkInstructions string `gorm:"type:text" json:"homeworkInstructions,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	ModuleID    uint   `gorm:"not null;index:idx_lesson_module_order,unique" json:"moduleId"`
	Order       int    `gorm:"column:sort_order;not null;index:idx_lesson_module_order,unique" json:"order"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Content     string `gorm:"type:longtext" json:"content,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}
