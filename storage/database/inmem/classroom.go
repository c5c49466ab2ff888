package inmemdb

import (
	"context"

	"github.com/hallpass-app/hallpass/core/classroom"
)

type classroomRepository struct {
	db *DB
}

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) CreateClassroom(_ context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, r := range repo.db.classrooms {
		if r.val.Code == cls.Code {
			return classroom.Classroom{}, classroom.ErrCodeExists
		}
	}

	cls.ID = newID()
	repo.db.classrooms[cls.ID] = &rec[classroom.Classroom]{seq: repo.db.nextSeq(), val: cls}
	return cls, nil
}

func (repo *classroomRepository) GetClassroomByID(_ context.Context, id string) (classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.classrooms[id]; ok {
		return r.val, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) GetClassroomByCode(_ context.Context, code string) (classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, r := range repo.db.classrooms {
		if r.val.Code == code {
			return r.val, nil
		}
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryClassroomsByTeacher(_ context.Context, teacherID string) ([]classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return ordered(repo.db.classrooms, func(c classroom.Classroom) bool { return c.TeacherID == teacherID }), nil
}

func (repo *classroomRepository) QueryClassroomsByParent(_ context.Context, parentID string) ([]classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return ordered(repo.db.classrooms, func(c classroom.Classroom) bool { return c.HasParent(parentID) }), nil
}

func (repo *classroomRepository) AddClassroomParent(_ context.Context, classID, parentID string) (classroom.Classroom, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r, ok := repo.db.classrooms[classID]
	if !ok {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	if !r.val.HasParent(parentID) {
		r.val.ParentIDs = append(r.val.ParentIDs, parentID)
	}
	return r.val, nil
}

func (repo *classroomRepository) CreateStudent(_ context.Context, st classroom.Student) (classroom.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	st.ID = newID()
	repo.db.students[st.ID] = &rec[classroom.Student]{seq: repo.db.nextSeq(), val: st}
	return st, nil
}

func (repo *classroomRepository) GetStudentByID(_ context.Context, id string) (classroom.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.students[id]; ok {
		return r.val, nil
	}
	return classroom.Student{}, classroom.ErrStudentNotFound
}

func (repo *classroomRepository) QueryStudentsByClass(_ context.Context, classID string) ([]classroom.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return ordered(repo.db.students, func(s classroom.Student) bool { return s.ClassID == classID }), nil
}

func (repo *classroomRepository) LinkStudentParent(_ context.Context, studentID, parentID string) (classroom.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r, ok := repo.db.students[studentID]
	if !ok {
		return classroom.Student{}, classroom.ErrStudentNotFound
	}
	if !r.val.HasParent(parentID) {
		r.val.ParentIDs = append(r.val.ParentIDs, parentID)
	}
	return r.val, nil
}
