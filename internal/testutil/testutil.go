// Package testutil 提供各模块测试共用的Redis和SQLite夹具。
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewRedis 启动一个进程内的Redis，并返回连接到它的客户端。
// 两者都会在测试结束时自动关闭。
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

// NewSQLite 打开一个内存中的SQLite数据库
func NewSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("无法打开内存SQLite: %v", err)
	}
	// 每个连接都会得到一个独立的内存库，只保留一个连接
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("无法获取底层连接: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// NewRouter 返回一个测试模式下的、不带任何中间件的gin引擎
func NewRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
