package migrations

import (
	"log"

	"gorm.io/gorm"
)

// BackfillUserRoles 为早期注册的用户补齐role字段
// AutoMigrate只加列不回填，历史行的role为空字符串时统一置为voter。
// 迁移是幂等的，重复执行无副作用。
func BackfillUserRoles(db *gorm.DB) error {
	log.Println("执行迁移: 回填users表的role字段")

	result := db.Exec("UPDATE users SET role = 'voter' WHERE role IS NULL OR role = ''")
	if result.Error != nil {
		log.Printf("迁移失败: %v", result.Error)
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("迁移成功: 回填了%d个用户的role字段", result.RowsAffected)
	} else {
		log.Println("迁移跳过: 无需回填")
	}
	return nil
}
