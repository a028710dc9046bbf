// gatectl 是资格判定策略的命令行工具。
//
// 用法:
//
//	gatectl <命令> [命令参数]
//
// 命令:
//
//	validate   校验策略文件（白名单可编译、阈值合法）
//	glob       测试域名 glob 是否命中指定域名
//	check      按策略对单个身份做一次干跑判定
//
// 退出码:
//
//	0: 成功（check 命令: 判定放行）
//	1: 校验失败、glob 不命中或判定拒绝
//	2: 参数错误
//
// 示例:
//
//	gatectl validate --policy policy.yaml
//	gatectl glob --pattern '*.partner.com' --domain sales.partner.com
//	gatectl check --policy policy.yaml --email bob@sales.partner.com --address 203.0.113.7
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/resumely/gatekit/pkg/config/xconf"
	"github.com/resumely/gatekit/pkg/gate/xallow"
	"github.com/resumely/gatekit/pkg/gate/xgate"
)

// 版本信息，可通过 -ldflags 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

// errDenied 干跑判定或 glob 测试未通过，映射到退出码 1。
var errDenied = errors.New("denied")

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := createApp()
	if err := app.Run(context.Background(), args); err != nil {
		if errors.Is(err, errDenied) {
			return 1
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if isUsageError(err) {
			return 2
		}
		return 1
	}
	return 0
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "gatectl",
		Usage:   "资格判定策略工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Commands: []*cli.Command{
			validateCommand(),
			globCommand(),
			checkCommand(),
		},
		DefaultCommand: "help",
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "校验策略文件",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "policy",
				Aliases:  []string{"p"},
				Usage:    "策略文件路径 (yaml/json)",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadPolicy(cmd.String("policy"))
			if err != nil {
				return err
			}

			active := 0
			for _, e := range cfg.Whitelist {
				if e.Active {
					active++
				}
			}
			fmt.Printf("policy ok: %d whitelist entries (%d active), free limit %d, %d admission scopes, %d guards\n",
				len(cfg.Whitelist), active, cfg.RegularFreeLimit,
				len(cfg.Admission), len(cfg.Guards))
			return nil
		},
	}
}

func globCommand() *cli.Command {
	return &cli.Command{
		Name:  "glob",
		Usage: "测试域名 glob",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "pattern",
				Usage:    "域名 glob，* 是唯一通配符",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "domain",
				Usage:    "待测试的域名",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			re, err := xallow.CompileDomainGlob(cmd.String("pattern"))
			if err != nil {
				return err
			}
			domain := cmd.String("domain")
			if re.MatchString(domain) {
				fmt.Printf("match: %s\n", domain)
				return nil
			}
			fmt.Printf("no match: %s\n", domain)
			return errDenied
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "按策略对单个身份做干跑判定",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "policy",
				Aliases:  []string{"p"},
				Usage:    "策略文件路径 (yaml/json)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "email",
				Usage:    "身份邮箱",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "客户端网络地址",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadPolicy(cmd.String("policy"))
			if err != nil {
				return err
			}

			engine, err := xgate.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = engine.Close() }()

			v, err := engine.Evaluate(ctx, xgate.EvaluateRequest{
				Email:          cmd.String("email"),
				NetworkAddress: cmd.String("address"),
			})
			if err != nil {
				return err
			}

			if v.Allowed {
				if v.Whitelisted {
					fmt.Printf("allowed: whitelisted via %q, free limit %s\n",
						v.WhitelistPattern, formatLimit(v.FreeLimit))
				} else {
					fmt.Printf("allowed: regular account, free limit %d\n", v.FreeLimit)
				}
				return nil
			}
			fmt.Printf("denied: %s\n", v.Reason)
			return errDenied
		},
	}
}

func loadPolicy(path string) (xgate.Config, error) {
	src, err := xconf.New(path)
	if err != nil {
		return xgate.Config{}, err
	}
	return xgate.Load(src)
}

func formatLimit(n int) string {
	if n == xallow.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}

// isUsageError 识别 CLI 框架产生的参数错误（未知 flag、缺少必填项）。
func isUsageError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"flag", "command", "Required"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
