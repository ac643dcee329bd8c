// internal/service/pricing/domain/engine.go
package domain

// DiscountAmount 计算单条折扣规则对一个价格/数量组合的抵扣金额。
// price 是该数量对应的总价。纯函数，无 I/O，可并发调用。
//
// 各类型的契约：
//   - percentage（及默认的百分比值）：price * value / 100
//   - fixed_amount（及默认的固定值）：value，一口价，与价格数量无关
//   - buy_x_get_y：sets = quantity/buyX，免费件数 = sets*getY，
//     金额 = 免费件数 * 单价
//   - bulk_pricing：quantity >= minQuantity 才生效，
//     之后按百分比或按件固定金额（value * quantity）
//
// 所有类型统一做后处理：有上限先截到上限，再保证非负。
func DiscountAmount(d *Discount, price float64, quantity int) float64 {
	var amount float64

	switch d.Kind {
	case KindBuyXGetY:
		if d.BuyQuantity > 0 && quantity >= d.BuyQuantity {
			sets := quantity / d.BuyQuantity
			freeUnits := sets * d.GetQuantity
			if quantity > 0 {
				amount = float64(freeUnits) * (price / float64(quantity))
			}
		}
		// quantity < buyX 时 sets=0，金额保持 0

	case KindBulkPricing:
		if d.MinQuantity > 0 && quantity < d.MinQuantity {
			break
		}
		if d.ValueKind == ValuePercentage {
			amount = price * d.Value / 100
		} else {
			amount = d.Value * float64(quantity)
		}

	default:
		// percentage / fixed_amount / bundle / flash_sale / first_time_buyer
		// 都按 ValueKind 解读
		if d.ValueKind == ValuePercentage {
			amount = price * d.Value / 100
		} else {
			amount = d.Value
		}
	}

	if d.MaxDiscountAmount > 0 && amount > d.MaxDiscountAmount {
		amount = d.MaxDiscountAmount
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}
