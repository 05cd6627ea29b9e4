// Package repository 提供排课问题与求解结果的数据访问层
package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/paiban/kebiao/internal/database"
)

//go:embed schema.sql
var schema string

// Schema 返回建表语句
func Schema() string {
	return schema
}

// Migrate 执行建表语句，表已存在时不做任何事
func Migrate(ctx context.Context, db *database.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("初始化表结构失败: %w", err)
	}
	return nil
}
