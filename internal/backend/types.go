package backend

// Faculty 院系
type Faculty struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Group 班级，Course 用于自动推导年级
type Group struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Course int    `json:"course"`
}

// Dormitory 宿舍楼
type Dormitory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Preset 宿舍楼在某学年的默认日期，日期为 ISO 格式，可能为空
type Preset struct {
	AcademicYear    string `json:"academic_year"`
	StartDate       string `json:"start_date,omitempty"`
	EndDate         string `json:"end_date,omitempty"`
	ApplicationDate string `json:"application_date,omitempty"`
}

// AccommodationRequest 住宿申请提交体
type AccommodationRequest struct {
	FacultyID       int     `json:"faculty_id"`
	GroupID         int     `json:"group_id"`
	Course          int     `json:"course"`
	FullName        string  `json:"full_name"`
	Surname         string  `json:"surname"`
	PhoneNumber     string  `json:"phone_number"`
	DormitoryID     int     `json:"dormitory_id"`
	ApplicationDate string  `json:"application_date"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	PreferredRoom   *string `json:"preferred_room"`
	Comments        *string `json:"comments"`
}
