package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// 随机角色里不包含管理员，管理员只在初始化时创建
var roles = []domain.Role{
	domain.RoleManager,
	domain.RoleEmployee,
	domain.RoleEmployee,
	domain.RoleEmployee,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string, organizationID int64) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		OrganizationID: organizationID,
		Username:       username,
		PasswordHash:   string(passwordHash),
		FullName:       fullName,
		Email:          username + "@" + emailDomainName,
		Role:           GenerateRandomRole(),
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

var shiftTypes = []domain.ShiftType{
	domain.ShiftTypeRegular,
	domain.ShiftTypeRegular,
	domain.ShiftTypeRegular,
	domain.ShiftTypeOvertime,
	domain.ShiftTypeNight,
	domain.ShiftTypeWeekend,
	domain.ShiftTypeHoliday,
}

var shiftLocations = []string{"前台", "一楼机房", "二楼机房", "值班室", "远程"}

// GenerateRandomShift 生成从今天起第 dayOffset 天的一个随机班次
func GenerateRandomShift(organizationID int64, createdBy int64, dayOffset int) *domain.Shift {
	day := time.Now().AddDate(0, 0, dayOffset)
	startHour := rand.Intn(14) + 8 // 8~21 点开始
	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, time.Local)
	end := start.Add(time.Duration(rand.Intn(6)+2) * time.Hour)

	maxAllowed := int32(rand.Intn(5) + 3)
	hourlyRate := float64(rand.Intn(30) + 20)

	return &domain.Shift{
		OrganizationID:       organizationID,
		Title:                "值班" + GenerateRandomID(0, 4),
		Description:          "随机生成的测试班次",
		StartTime:            start,
		EndTime:              end,
		Location:             shiftLocations[rand.Intn(len(shiftLocations))],
		Type:                 shiftTypes[rand.Intn(len(shiftTypes))],
		Status:               domain.ShiftStatusPlanned,
		MinRequiredEmployees: int32(rand.Intn(3) + 1),
		MaxAllowedEmployees:  &maxAllowed,
		HourlyRate:           &hourlyRate,
		CreatedBy:            createdBy,
	}
}
