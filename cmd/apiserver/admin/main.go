package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"im-social/internal/config"
	"im-social/internal/logger"
	"im-social/internal/models"
	"im-social/internal/services"
	"im-social/internal/storage"
)

const timeLayout = "2006-01-02 15:04:05"

func usage() {
	fmt.Println("使用方法:")
	fmt.Println("  ./admin [-config path] repair [-dry-run]       - 删除空群组和双方均未接受的好友记录")
	fmt.Println("  ./admin [-config path] show-user <userID>      - 显示用户信息")
	fmt.Println("  ./admin [-config path] show-group <groupID>    - 显示群组及成员")
	fmt.Println("  ./admin [-config path] list-relations <userID> - 列出用户的好友关系记录")
}

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer logger.Sync(zlog)

	db, err := storage.InitDB(cfg.Database, zlog)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	switch args[0] {
	case "repair":
		fs := flag.NewFlagSet("repair", flag.ExitOnError)
		dryRun := fs.Bool("dry-run", false, "只列出将被删除的记录")
		_ = fs.Parse(args[1:])
		repair(ctx, db, zlog, *dryRun)

	case "show-user":
		showUser(ctx, db, idArg(args, "用户ID"))

	case "show-group":
		showGroup(ctx, db, idArg(args, "群组ID"))

	case "list-relations":
		listRelations(ctx, db, idArg(args, "用户ID"))

	default:
		log.Fatalf("未知命令: %s", args[0])
	}
}

func idArg(args []string, name string) uint {
	if len(args) < 2 {
		log.Fatalf("需要指定%s", name)
	}
	id, err := storage.ParseID(args[1])
	if err != nil {
		log.Fatalf("无效的%s: %v", name, err)
	}
	return id
}

func repair(ctx context.Context, db *gorm.DB, zlog *zap.Logger, dryRun bool) {
	userRepo := storage.NewGormUserRepository(db)
	friendRepo := storage.NewGormFriendRelationRepository(db)
	groupRepo := storage.NewGormGroupRepository(db)

	if dryRun {
		empty, err := groupRepo.ListEmptyGroupIDs(ctx)
		if err != nil {
			log.Fatalf("查询空群组失败: %v", err)
		}
		var invalid int64
		if err := db.WithContext(ctx).Model(&models.FriendRelation{}).
			Where("accepted_by_lo = ? AND accepted_by_hi = ?", false, false).
			Count(&invalid).Error; err != nil {
			log.Fatalf("查询无效好友关系失败: %v", err)
		}
		fmt.Printf("空群组: %v\n", empty)
		fmt.Printf("无效好友关系记录: %d 条\n", invalid)
		return
	}

	friendService := services.NewFriendService(userRepo, friendRepo, nil, zlog)
	groupService := services.NewGroupService(db, groupRepo, userRepo, nil, zlog)

	purged, err := groupService.PurgeEmptyGroups(ctx)
	if err != nil {
		log.Fatalf("清理空群组失败 (已删除 %v): %v", purged, err)
	}
	removed, err := friendService.RepairInvalidRelations(ctx)
	if err != nil {
		log.Fatalf("清理无效好友关系失败: %v", err)
	}

	fmt.Println("修复流程完成")
	fmt.Println("--------------------------------------")
	fmt.Printf("已删除空群组: %v\n", purged)
	fmt.Printf("已删除无效好友关系记录: %d 条\n", removed)
}

func showUser(ctx context.Context, db *gorm.DB, userID uint) {
	user, err := storage.NewGormUserRepository(db).GetByID(ctx, userID)
	if err != nil {
		log.Fatalf("查找用户失败: %v", err)
	}

	fmt.Printf("用户 %d 信息:\n", userID)
	fmt.Println("--------------------------------------")
	fmt.Printf("姓名: %s\n", user.DisplayName())
	fmt.Printf("邮箱: %s\n", user.Email)
	fmt.Printf("注册时间: %s\n", user.CreatedAt.Format(timeLayout))

	memberships, err := storage.NewGormGroupRepository(db).ListMembershipsByUser(ctx, userID)
	if err != nil {
		fmt.Printf("获取群组成员关系失败: %v\n", err)
		return
	}
	fmt.Printf("群组成员关系 (%d 条):\n", len(memberships))
	for _, m := range memberships {
		fmt.Printf("  群组 %d, 已接受: %v\n", m.GroupID, m.AcceptedInvite)
	}
}

func showGroup(ctx context.Context, db *gorm.DB, groupID uint) {
	repo := storage.NewGormGroupRepository(db)
	group, err := repo.GetGroupByID(ctx, groupID)
	if err != nil {
		log.Fatalf("查找群组失败: %v", err)
	}

	fmt.Printf("群组 %d 信息:\n", groupID)
	fmt.Println("--------------------------------------")
	fmt.Printf("名称: %s\n", group.Name)
	fmt.Printf("创建时间: %s\n", group.CreatedAt.Format(timeLayout))

	members, err := repo.ListMembershipsByGroup(ctx, groupID)
	if err != nil {
		fmt.Printf("获取成员失败: %v\n", err)
		return
	}
	fmt.Printf("成员 (%d 人):\n", len(members))
	for i, m := range members {
		fmt.Printf("#%d 用户ID: %d, 已接受: %v, 邀请人: %d, 加入时间: %s\n",
			i+1, m.UserID, m.AcceptedInvite, m.InvitedBy, m.CreatedAt.Format(timeLayout))
	}
}

func listRelations(ctx context.Context, db *gorm.DB, userID uint) {
	rels, err := storage.NewGormFriendRelationRepository(db).ListByUser(ctx, userID)
	if err != nil {
		log.Fatalf("获取好友关系失败: %v", err)
	}

	fmt.Printf("用户 %d 的好友关系 (%d 条):\n", userID, len(rels))
	fmt.Println("--------------------------------------")
	for i := range rels {
		p, err := rels[i].Perspective(userID)
		if err != nil {
			continue
		}
		status, err := p.Status()
		if err != nil {
			fmt.Printf("#%d 对方: %d, 状态: 无效 (%v)\n", i+1, p.Counterpart, err)
			continue
		}
		fmt.Printf("#%d 对方: %d, 状态: %s, 更新时间: %s\n",
			i+1, p.Counterpart, status, rels[i].UpdatedAt.Format(timeLayout))
	}
}
