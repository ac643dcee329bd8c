// internal/pkg/bootstrap/nacos_config.go
package bootstrap

import (
	"log"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
)

var nacosConfigClient config_client.IConfigClient

// initNacosConfig 从配置中心拉取初始配置并监听后续变更。
// 拉取失败只告警不中断：本地配置依然可用。
func initNacosConfig(dataID string) {
	addrs := getEnv("NACOS_SERVER_ADDRS", "localhost:8848")
	group := getEnv("NACOS_GROUP", "DEFAULT_GROUP")

	var serverConfigs []constant.ServerConfig
	for _, addr := range strings.Split(addrs, ",") {
		parts := strings.Split(addr, ":")
		if len(parts) != 2 {
			log.Printf("ERROR: invalid nacos address %q, remote config disabled", addr)
			return
		}
		port, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			log.Printf("ERROR: invalid nacos port %q, remote config disabled", parts[1])
			return
		}
		serverConfigs = append(serverConfigs, *constant.NewServerConfig(parts[0], port))
	}

	clientConfig := *constant.NewClientConfig(
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogDir("/tmp/nacos/log"),
		constant.WithCacheDir("/tmp/nacos/cache"),
		constant.WithLogLevel("warn"),
		constant.WithNamespaceId(getEnv("NACOS_NAMESPACE", "")),
	)

	client, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		log.Printf("ERROR: cannot create nacos config client: %v", err)
		return
	}
	nacosConfigClient = client

	if content, err := client.GetConfig(vo.ConfigParam{DataId: dataID, Group: group}); err == nil && content != "" {
		applyRemoteConfig(content)
	}

	err = client.ListenConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  group,
		OnChange: func(namespace, group, dataId, data string) {
			applyRemoteConfig(data)
		},
	})
	if err != nil {
		log.Printf("ERROR: cannot listen nacos config: %v", err)
	}
}

func closeNacosConfig() {
	if nacosConfigClient != nil {
		nacosConfigClient.CloseClient()
	}
}
