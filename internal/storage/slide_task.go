package storage

import (
	"errors"

	"gorm.io/gorm"

	"slide-extractor/internal/types"
)

var ErrNotInitialized = errors.New("database not initialized")

// SaveTask inserts or updates a task keyed by TaskId. Slide rows are
// managed separately through ReplaceSlides.
func SaveTask(task *types.SlideTask) error {
	if DB == nil {
		return ErrNotInitialized
	}
	var existing types.SlideTask
	err := DB.Where("task_id = ?", task.TaskId).First(&existing).Error
	switch {
	case err == nil:
		task.Id = existing.Id
		task.CreateTime = existing.CreateTime
		return DB.Omit("SlideInfos").Save(task).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return DB.Omit("SlideInfos").Create(task).Error
	default:
		return err
	}
}

// UpdateProgress sets status fields without touching the rest of the row.
func UpdateProgress(taskId string, pct uint8, statusMsg string) error {
	if DB == nil {
		return ErrNotInitialized
	}
	return DB.Model(&types.SlideTask{}).
		Where("task_id = ?", taskId).
		Updates(map[string]interface{}{"process_pct": pct, "status_msg": statusMsg}).Error
}

// ReplaceSlides swaps the slide rows of a task in one transaction.
func ReplaceSlides(taskId string, infos []types.SlideInfo) error {
	if DB == nil {
		return ErrNotInitialized
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskId).Delete(&types.SlideInfo{}).Error; err != nil {
			return err
		}
		if len(infos) == 0 {
			return nil
		}
		for i := range infos {
			infos[i].Id = 0
			infos[i].TaskId = taskId
		}
		return tx.Create(&infos).Error
	})
}

func GetTask(taskId string) (*types.SlideTask, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	var task types.SlideTask
	err := DB.Preload("SlideInfos", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq asc")
	}).Where("task_id = ?", taskId).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func GetTaskHistory(limit int) ([]types.SlideTask, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	var tasks []types.SlideTask
	if err := DB.Order("create_time desc, id desc").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func DeleteTask(taskId string) error {
	if DB == nil {
		return ErrNotInitialized
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskId).Delete(&types.SlideInfo{}).Error; err != nil {
			return err
		}
		return tx.Where("task_id = ?", taskId).Delete(&types.SlideTask{}).Error
	})
}

// MarkStaleTasks fails every task a previous run left processing. Pending
// tasks are included when the queue they sat in did not survive the
// restart. Call it once at startup before workers accept new work.
func MarkStaleTasks(includePending bool) (int64, error) {
	if DB == nil {
		return 0, ErrNotInitialized
	}
	stale := []types.SlideTaskStatus{types.SlideTaskStatusProcessing}
	if includePending {
		stale = append(stale, types.SlideTaskStatusPending)
	}
	result := DB.Model(&types.SlideTask{}).
		Where("status IN ?", stale).
		Updates(map[string]interface{}{
			"status":      types.SlideTaskStatusFailed,
			"fail_reason": "Task interrupted by server restart",
			"status_msg":  "Interrupted",
		})
	return result.RowsAffected, result.Error
}
