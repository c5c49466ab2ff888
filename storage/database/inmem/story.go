package inmemdb

import (
	"context"
	"sort"

	"github.com/hallpass-app/hallpass/core/story"
)

type storyRepository struct {
	db *DB
}

func NewStoryRepository(db *DB) story.Repository {
	return &storyRepository{db: db}
}

func (repo *storyRepository) CreateStory(_ context.Context, st story.Story) (story.Story, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	st.ID = newID()
	repo.db.stories[st.ID] = &rec[story.Story]{seq: repo.db.nextSeq(), val: st}
	return st, nil
}

func (repo *storyRepository) QueryStoriesByClass(_ context.Context, classID string) ([]story.Story, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stories := ordered(repo.db.stories, func(s story.Story) bool { return s.ClassID == classID })
	sort.SliceStable(stories, func(i, j int) bool { return stories[i].CreatedAt.After(stories[j].CreatedAt) })
	return stories, nil
}

func (repo *storyRepository) CreatePointRecord(_ context.Context, pr story.PointRecord) (story.PointRecord, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	pr.ID = newID()
	repo.db.points[pr.ID] = &rec[story.PointRecord]{seq: repo.db.nextSeq(), val: pr}
	return pr, nil
}

func (repo *storyRepository) QueryPointRecordsByStudent(_ context.Context, studentID string) ([]story.PointRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return ordered(repo.db.points, func(p story.PointRecord) bool { return p.StudentID == studentID }), nil
}

func (repo *storyRepository) StudentPointsTotal(_ context.Context, studentID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var total int
	for _, r := range repo.db.points {
		if r.val.StudentID == studentID {
			total += r.val.Points
		}
	}
	return total, nil
}
