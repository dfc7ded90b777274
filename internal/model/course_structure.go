package model

import "course_platform_backend/internal/progression"

// CourseStructure is the ordered module/lesson tree of a course. It is the
// value cached under the course namespace.
type CourseStructure struct {
	Course  Course            `json:"course"`
	Modules []ModuleStructure `json:"modules"`
}

type ModuleStructure struct {
	Module  Module   `json:"module"`
	Lessons []Lesson `json:"lessons"`
}

func (s *CourseStructure) Nodes() []progression.ModuleNode {
	nodes := make([]progression.ModuleNode, len(s.Modules))
	for i, m := range s.Modules {
		ids := make([]uint, len(m.Lessons))
		for j, l := range m.Lessons {
			ids[j] = l.ID
		}
		nodes[i] = progression.ModuleNode{ID: m.Module.ID, LessonIDs: ids}
	}
	return nodes
}

func (s *CourseStructure) LessonIDs() []uint {
	var ids []uint
	for _, m := range s.Modules {
		for _, l := range m.Lessons {
			ids = append(ids, l.ID)
		}
	}
	return ids
}
