package domain

// Models 迁移顺序：被引用的表在前
func Models() []any {
	return []any{
		&Role{},
		&Category{},
		&User{},
		&UserRoleCategory{},
		&Training{},
		&TrainingUserStatus{},
		&Team{},
		&Convocation{},
		&Article{},
		&PrivateMessage{},
		&ChatGroup{},
		&GroupMessage{},
	}
}
